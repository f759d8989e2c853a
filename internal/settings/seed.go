package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is an optional YAML file applied once at startup, after the
// defaults are seeded.
type SeedFile struct {
	Domains              []string `yaml:"domains"`
	SkipHomepageRedirect *bool    `yaml:"skip_homepage_redirect,omitempty"`
}

// LoadSeedFile reads and validates a seed file. An absent file returns an
// os.ErrNotExist-wrapped error; callers skip silently in that case.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed file: %w", err)
	}
	for i, d := range f.Domains {
		if NormalizeDomain(d) == "" {
			return nil, fmt.Errorf("seed file: domains[%d] is empty", i)
		}
	}
	return &f, nil
}

// Initialize seeds defaults for absent keys and then applies the seed file
// at path if one exists. Seed values only apply to keys that were absent
// before this call, so later edits survive restarts.
func (s *Service) Initialize(ctx context.Context, seedPath string) error {
	seeded, err := s.store.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	if len(seeded) > 0 {
		slog.Info("initialized default settings", "keys", seeded)
	}

	if seedPath == "" || len(seeded) == 0 {
		return nil
	}
	f, err := LoadSeedFile(seedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("seed file not found, skipping", "path", seedPath)
			return nil
		}
		return err
	}

	var added int
	if contains(seeded, KeyDomains) {
		res, err := s.MergeDomains(ctx, f.Domains)
		if err != nil {
			return fmt.Errorf("apply seed domains: %w", err)
		}
		added = len(res.Added)
	}
	if f.SkipHomepageRedirect != nil && contains(seeded, KeySkipHomepageRedirect) {
		if err := s.SetSkipHomepage(ctx, *f.SkipHomepageRedirect); err != nil {
			return fmt.Errorf("apply seed skip homepage: %w", err)
		}
	}
	slog.Info("seed file applied", "path", seedPath, "added", added)
	return nil
}
