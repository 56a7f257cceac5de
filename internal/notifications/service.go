package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"revoice/internal/config"
)

const userAgent = "Revoice-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyVideoAdded(ctx context.Context, title string) error
	NotifyStageFailed(ctx context.Context, title, stage, message string) error
	NotifyVideoLocalized(ctx context.Context, title, libraryPath string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		notifyPublishes: cfg.Notifications.Publishes,
		notifyFailures:  cfg.Notifications.Failures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	notifyPublishes bool
	notifyFailures  bool
}

func (n *ntfyService) NotifyVideoAdded(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled video"
	}
	data := payload{
		title:   "Revoice - Video Added",
		message: fmt.Sprintf("Queued for localization: %s", title),
		tags:    []string{"revoice", "ingest", "added"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageFailed(ctx context.Context, title, stage, message string) error {
	if !n.notifyFailures {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled video"
	}
	text := fmt.Sprintf("Stage %s failed for %s", stage, title)
	if message = strings.TrimSpace(message); message != "" {
		text = fmt.Sprintf("%s\n%s", text, message)
	}
	data := payload{
		title:    "Revoice - Stage Failed",
		message:  text,
		tags:     []string{"revoice", "stage", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyVideoLocalized(ctx context.Context, title, libraryPath string) error {
	if !n.notifyPublishes {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled video"
	}
	message := fmt.Sprintf("Ready to watch: %s", title)
	if libraryPath = strings.TrimSpace(libraryPath); libraryPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, libraryPath)
	}
	data := payload{
		title:    "Revoice - Localized",
		message:  message,
		tags:     []string{"revoice", "publish", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Revoice - Error",
		message:  builder.String(),
		tags:     []string{"revoice", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Revoice - Test",
		message:  "Notification system test",
		tags:     []string{"revoice", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyVideoAdded(context.Context, string) error                  { return nil }
func (noopService) NotifyStageFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyVideoLocalized(context.Context, string, string) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
