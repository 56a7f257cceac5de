package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateSynthesize(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranslate() error {
	if c.Translate.TargetLanguage == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/revoice/config.toml"
		}
		return fmt.Errorf("translate.target_language is required. Set REVOICE_TARGET_LANG env var or edit %s (create with 'revoice config init')", defaultPath)
	}
	if _, err := language.Parse(c.Translate.TargetLanguage); err != nil {
		return fmt.Errorf("translate.target_language: %q is not a valid BCP 47 tag: %w", c.Translate.TargetLanguage, err)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/revoice/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set REVOICE_LLM_API_KEY env var or edit %s (create with 'revoice config init')", defaultPath)
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateStages() error {
	if c.Stages.DefaultTimeout <= 0 {
		return errors.New("stages.default_timeout must be positive (seconds)")
	}
	for name, value := range c.Stages.Timeouts {
		if value <= 0 {
			return fmt.Errorf("stages.timeouts.%s must be positive (seconds)", name)
		}
	}
	return nil
}

func (c *Config) validateSynthesize() error {
	if strings.TrimSpace(c.Synthesize.Voice) == "" {
		return errors.New("synthesize.voice must be set")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.SyncURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Publish.SyncURL)
	if err != nil {
		return fmt.Errorf("publish.sync_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("publish.sync_url must be an http(s) URL, got %q", c.Publish.SyncURL)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
