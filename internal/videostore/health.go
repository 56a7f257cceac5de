package videostore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

var requiredTables = []string{"schema_version", "videos", "video_stages"}

// CheckHealth inspects the database file and reports what it finds
// without failing fast; every field that could be checked is filled in
// so status output can show partial damage.
func (s *Store) CheckHealth(ctx context.Context) DatabaseHealth {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		health.Error = fmt.Sprintf("database file: %v", err)
		return health
	}
	if info.IsDir() {
		health.Error = "database path is a directory"
		return health
	}
	health.DatabaseExists = true

	if err := s.db.PingContext(ctx); err != nil {
		health.Error = fmt.Sprintf("open database: %v", err)
		return health
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = fmt.Sprintf("read schema version: %v", err)
		return health
	}

	existing := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = fmt.Sprintf("list tables: %v", err)
		return health
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			health.Error = fmt.Sprintf("scan table name: %v", err)
			return health
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		health.Error = fmt.Sprintf("list tables: %v", err)
		return health
	}
	rows.Close()

	for _, table := range requiredTables {
		if existing[table] {
			health.TablesPresent = append(health.TablesPresent, table)
		} else {
			health.MissingTables = append(health.MissingTables, table)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	if !health.IntegrityCheck {
		health.Error = fmt.Sprintf("integrity check: %s", integrity)
		return health
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&health.TotalVideos); err != nil {
		health.Error = fmt.Sprintf("count videos: %v", err)
	}
	return health
}

// Healthy reports whether every check passed.
func (h DatabaseHealth) Healthy() bool {
	return h.Error == "" && h.DatabaseExists && h.DatabaseReadable && len(h.MissingTables) == 0 && h.IntegrityCheck
}
