package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"revoice/internal/config"
)

// Service moves localized videos into the media library and optionally
// reports the placement to an external record endpoint.
type Service struct {
	libraryDir string
	syncURL    string
	syncToken  string
	httpClient *http.Client
}

// Record describes a published video for the sync endpoint.
type Record struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Language    string `json:"language"`
	LibraryPath string `json:"library_path"`
}

// NewService creates a publisher from configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		libraryDir: cfg.Paths.LibraryDir,
		syncURL:    strings.TrimSpace(cfg.Publish.SyncURL),
		syncToken:  strings.TrimSpace(cfg.Publish.SyncToken),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient sets a custom HTTP client (for testing).
func (s *Service) WithHTTPClient(client *http.Client) {
	s.httpClient = client
}

// Place moves the localized file into the library under a directory derived
// from the video title and target language. Collisions get a numeric suffix
// rather than overwriting an existing release.
func (s *Service) Place(_ context.Context, sourcePath, title, language string) (string, error) {
	if strings.TrimSpace(s.libraryDir) == "" {
		return "", fmt.Errorf("library directory not configured")
	}
	if sourcePath == "" {
		return "", fmt.Errorf("source path required")
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	slug := slugTitle(title)
	if language = strings.TrimSpace(language); language != "" {
		slug = slug + "-" + strings.ToLower(language)
	}
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".mp4"
	}

	targetDir := filepath.Join(s.libraryDir, slug)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure library directory: %w", err)
	}

	target, err := nextFreePath(targetDir, slug, ext)
	if err != nil {
		return "", err
	}
	if err := moveFile(sourcePath, target); err != nil {
		return "", fmt.Errorf("move into library: %w", err)
	}
	return target, nil
}

// SyncRecord posts the placement record to the configured endpoint. A
// missing sync_url makes this a no-op so libraries without a catalog
// service still publish cleanly.
func (s *Service) SyncRecord(ctx context.Context, record Record) error {
	if s.syncURL == "" {
		return nil
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode sync record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.syncURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.syncToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.syncToken)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sync record: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sync record: endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// SyncConfigured reports whether a record sync endpoint is set.
func (s *Service) SyncConfigured() bool {
	return s.syncURL != ""
}

// CheckHealth verifies the library directory is configured and writable.
func (s *Service) CheckHealth(_ context.Context) error {
	if strings.TrimSpace(s.libraryDir) == "" {
		return fmt.Errorf("library directory not configured")
	}
	probe, err := os.CreateTemp(s.libraryDir, ".revoice-probe-*")
	if err != nil {
		return fmt.Errorf("library directory not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

func nextFreePath(dir, base, ext string) (string, error) {
	candidate := filepath.Join(dir, base+ext)
	if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
		return candidate, nil
	}
	const maxAttempts = 1000
	for attempt := 2; attempt <= maxAttempts; attempt++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, attempt, ext))
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("exhausted library filename slots in %s", dir)
}

// moveFile renames when possible and falls back to copy+remove when the
// library lives on a different filesystem.
func moveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return renameErr
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// slugTitle lowercases the title and collapses punctuation into hyphens so
// library directory names stay filesystem-safe.
func slugTitle(title string) string {
	slug := strings.Builder{}
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if !lastHyphen && slug.Len() > 0 {
				slug.WriteRune('-')
				lastHyphen = true
			}
		default:
			// drop other runes
		}
	}
	result := strings.Trim(slug.String(), "-")
	if result == "" {
		result = "untitled"
	}
	return result
}
