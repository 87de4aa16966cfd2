// ABOUTME: Operator profile loading for atms-console
// ABOUTME: Loads TOML profile from XDG path with environment variable expansion

package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile is the per-operator configuration overlaying the deployment
// config: which server to talk to and where to keep the session.
type Profile struct {
	Server   ServerProfile   `toml:"server"`
	Keystore KeystoreProfile `toml:"keystore"`
	Logging  LoggingProfile  `toml:"logging"`
}

type ServerProfile struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

type KeystoreProfile struct {
	Path string `toml:"path"`
}

type LoggingProfile struct {
	Level string `toml:"level"`
}

// defaultProfilePath returns the XDG location of the profile file.
func defaultProfilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "atms-console", "profile.toml"), nil
}

// defaultKeystorePath returns where the session database lives when the
// profile doesn't say otherwise.
func defaultKeystorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "atms-console", "session.db"), nil
}

// loadProfile reads the profile from the given path, expanding environment
// variables. A missing file yields an empty profile, not an error.
func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	var p Profile
	if _, err := toml.Decode(expanded, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating profile: %w", err)
	}

	return &p, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that profile fields that are present are valid.
func (p *Profile) Validate() error {
	if p.Server.URL != "" {
		u, err := url.Parse(p.Server.URL)
		if err != nil {
			return fmt.Errorf("server.url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("server.url must use http or https scheme")
		}
	}
	return nil
}
