package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MergeResult reports what MergeDomains changed.
type MergeResult struct {
	Added   []string `json:"added"`
	Fetched int      `json:"fetched"`
	Total   int      `json:"total"`
}

// Service applies edits to the stored settings. Read-modify-write
// sequences are serialised so concurrent edits do not lose updates.
type Service struct {
	store Store
	mu    sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Settings returns the currently stored settings.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return s.store.Load(ctx)
}

// AddDomain normalises raw and appends it to the domain list.
func (s *Service) AddDomain(ctx context.Context, raw string) (string, error) {
	domain := NormalizeDomain(raw)
	if domain == "" {
		return "", ErrEmptyDomain
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if contains(cur.Domains, domain) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateDomain, domain)
	}
	if err := s.store.SaveDomains(ctx, append(cur.Domains, domain)); err != nil {
		return "", err
	}
	slog.Info("domain added", "domain", domain, "count", len(cur.Domains)+1)
	return domain, nil
}

// RemoveDomain deletes every entry equal to domain.
func (s *Service) RemoveDomain(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(cur.Domains))
	for _, d := range cur.Domains {
		if d != domain {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(cur.Domains) {
		return fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
	}
	if err := s.store.SaveDomains(ctx, kept); err != nil {
		return err
	}
	slog.Info("domain removed", "domain", domain, "count", len(kept))
	return nil
}

// ClearDomains empties the domain list.
func (s *Service) ClearDomains(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveDomains(ctx, []string{}); err != nil {
		return err
	}
	slog.Info("domain list cleared")
	return nil
}

func (s *Service) SetSkipHomepage(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveSkipHomepage(ctx, enabled); err != nil {
		return err
	}
	slog.Info("skip homepage redirect updated", "enabled", enabled)
	return nil
}

// MergeDomains normalises each candidate and appends the ones not already
// listed, preserving the existing order.
func (s *Service) MergeDomains(ctx context.Context, candidates []string) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.Load(ctx)
	if err != nil {
		return MergeResult{}, err
	}

	res := MergeResult{Added: []string{}}
	merged := append([]string(nil), cur.Domains...)
	for _, c := range candidates {
		d := NormalizeDomain(c)
		if d == "" {
			continue
		}
		res.Fetched++
		if contains(merged, d) {
			continue
		}
		merged = append(merged, d)
		res.Added = append(res.Added, d)
	}
	res.Total = len(merged)

	if len(res.Added) == 0 {
		return res, nil
	}
	if err := s.store.SaveDomains(ctx, merged); err != nil {
		return MergeResult{}, err
	}
	slog.Info("domains merged", "added", len(res.Added), "total", res.Total)
	return res, nil
}
