package cli

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/archive_redirector/internal/config"
	"github.com/dgnsrekt/archive_redirector/internal/recommend"
	"github.com/dgnsrekt/archive_redirector/internal/redirect"
	"github.com/dgnsrekt/archive_redirector/internal/settings"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	return withSettings(c.globals, func(ctx context.Context, _ *config.Config, svc *settings.Service) error {
		s, err := svc.Settings(ctx)
		if err != nil {
			return err
		}
		domains := s.Domains
		if c.Sorted {
			domains = settings.SortedDomains(domains)
		}

		if c.globals.JSON {
			return printJSON(map[string]any{
				"domains":                domains,
				"skip_homepage_redirect": s.SkipHomepageRedirect,
			})
		}
		fmt.Printf("Skip homepage: %s\n", onOff(s.SkipHomepageRedirect))
		if len(domains) == 0 {
			fmt.Println("No domains listed.")
			return nil
		}
		fmt.Printf("Domains (%d):\n", len(domains))
		for _, d := range domains {
			fmt.Printf("  %s\n", d)
		}
		return nil
	})
}

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	return withSettings(c.globals, func(ctx context.Context, _ *config.Config, svc *settings.Service) error {
		domain, err := svc.AddDomain(ctx, c.Args.Domain)
		if err != nil {
			return err
		}
		if c.globals.JSON {
			return printJSON(map[string]string{"added": domain})
		}
		fmt.Printf("Added %s\n", domain)
		return nil
	})
}

// Execute implements the go-flags Commander interface for RemoveCommand.
func (c *RemoveCommand) Execute(args []string) error {
	return withSettings(c.globals, func(ctx context.Context, _ *config.Config, svc *settings.Service) error {
		domain := settings.NormalizeDomain(c.Args.Domain)
		if err := svc.RemoveDomain(ctx, domain); err != nil {
			return err
		}
		if c.globals.JSON {
			return printJSON(map[string]string{"removed": domain})
		}
		fmt.Printf("Removed %s\n", domain)
		return nil
	})
}

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if !c.Force {
		return fmt.Errorf("clear requires --force flag for safety")
	}
	return withSettings(c.globals, func(ctx context.Context, _ *config.Config, svc *settings.Service) error {
		if err := svc.ClearDomains(ctx); err != nil {
			return err
		}
		if c.globals.JSON {
			return printJSON(map[string]bool{"cleared": true})
		}
		fmt.Println("Cleared all domains")
		return nil
	})
}

// Execute implements the go-flags Commander interface for SkipHomepageCommand.
func (c *SkipHomepageCommand) Execute(args []string) error {
	enabled, err := parseOnOff(c.Args.State)
	if err != nil {
		return err
	}
	return withSettings(c.globals, func(ctx context.Context, _ *config.Config, svc *settings.Service) error {
		if err := svc.SetSkipHomepage(ctx, enabled); err != nil {
			return err
		}
		if c.globals.JSON {
			return printJSON(map[string]bool{"skip_homepage_redirect": enabled})
		}
		fmt.Printf("Skip homepage: %s\n", onOff(enabled))
		return nil
	})
}

// Execute implements the go-flags Commander interface for RecommendedCommand.
func (c *RecommendedCommand) Execute(args []string) error {
	return withSettings(c.globals, func(ctx context.Context, cfg *config.Config, svc *settings.Service) error {
		url := cfg.RecommendedURL
		if c.URL != "" {
			url = c.URL
		}
		candidates, err := recommend.NewFetcher(url).Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetch recommended domains: %w", err)
		}
		res, err := svc.MergeDomains(ctx, candidates)
		if err != nil {
			return err
		}
		if c.globals.JSON {
			return printJSON(res)
		}
		fmt.Printf("Added %d of %d recommended domains (%d listed)\n", len(res.Added), res.Fetched, res.Total)
		for _, d := range res.Added {
			fmt.Printf("  + %s\n", d)
		}
		return nil
	})
}

// Execute implements the go-flags Commander interface for DecideCommand.
func (c *DecideCommand) Execute(args []string) error {
	return withSettings(c.globals, func(ctx context.Context, _ *config.Config, svc *settings.Service) error {
		s, err := svc.Settings(ctx)
		if err != nil {
			return err
		}
		outcome, err := redirect.Decide(c.Args.URL, s)
		if err != nil {
			return err
		}

		if c.globals.JSON {
			return printJSON(map[string]string{
				"url":            c.Args.URL,
				"outcome":        outcome.Kind.String(),
				"target":         outcome.Target,
				"matched_domain": outcome.MatchedDomain,
			})
		}
		switch outcome.Kind {
		case redirect.Redirect:
			fmt.Printf("redirect -> %s (matched %s)\n", outcome.Target, outcome.MatchedDomain)
		case redirect.SkipHomepage:
			fmt.Printf("skip_homepage (matched %s)\n", outcome.MatchedDomain)
		default:
			fmt.Println("no_match")
		}
		return nil
	})
}
