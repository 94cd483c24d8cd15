package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neoclaw-ai/preopen/internal/registry"
)

// Validate checks the preopen list and match mode and returns the first error.
func (c *Config) Validate() error {
	var errs []error

	if _, err := registry.ParseMatch(c.Match); err != nil {
		errs = append(errs, fmt.Errorf("match: %w", err))
	}
	for i, dir := range c.Dirs {
		if err := validateDir(dir); err != nil {
			errs = append(errs, fmt.Errorf("dirs[%d]: %w", i, err))
		}
	}
	if err := c.Sandbox.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sandbox: %w", err))
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Validate checks sandbox read-only roots.
func (c SandboxConfig) Validate() error {
	for i, dir := range c.ReadOnlyDirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("read_only_dirs[%d]: path is empty", i)
		}
	}
	return nil
}

// ValidateDirs checks directories destined for a preopen list.
func ValidateDirs(dirs []string) error {
	for _, dir := range dirs {
		if err := validateDir(dir); err != nil {
			return fmt.Errorf("directory %q: %w", dir, err)
		}
	}
	return nil
}

func validateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("path is empty")
	}
	if strings.Contains(dir, registry.Delimiter) {
		return fmt.Errorf("path contains the list delimiter %q", registry.Delimiter)
	}
	return nil
}
