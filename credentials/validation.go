// credentials/validation.go
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// validateConfig checks cfg and fills the default refresh window.
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Username) == "" {
		return errors.New("username is required")
	}
	if cfg.Password == "" {
		return errors.New("password is required")
	}
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return err
	}

	if cfg.RefreshWindow < 0 {
		return fmt.Errorf("refresh window cannot be negative: %s", cfg.RefreshWindow)
	}
	if cfg.RefreshWindow == 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if cfg.RefreshBufferPeriod < 0 {
		return fmt.Errorf("refresh buffer period cannot be negative: %s", cfg.RefreshBufferPeriod)
	}
	if cfg.RefreshBufferPeriod >= cfg.RefreshWindow {
		return fmt.Errorf("refresh buffer period %s must be shorter than the refresh window %s", cfg.RefreshBufferPeriod, cfg.RefreshWindow)
	}

	return nil
}

func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("base URL %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", baseURL)
	}
	return nil
}
