package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/archive_redirector/internal/redirect"
)

// DecisionResult is the dry-run answer for one URL.
type DecisionResult struct {
	URL           string `json:"url"`
	Outcome       string `json:"outcome" enum:"no_match,skip_homepage,redirect"`
	Target        string `json:"target,omitempty"`
	MatchedDomain string `json:"matched_domain,omitempty"`
}

func registerDecideHandlers(api huma.API, svc SettingsService) {
	type decideInput struct {
		Body struct {
			URL string `json:"url" minLength:"1" doc:"Absolute URL to evaluate"`
		}
	}
	type decideOutput struct {
		Body DecisionResult
	}
	huma.Register(api, huma.Operation{OperationID: "decide", Method: http.MethodPost, Path: "/api/v1/decide", Summary: "Evaluate a URL against the current settings", Description: "Dry run. No tab is touched and nothing is tracked.", Tags: []string{"Decide"}},
		func(ctx context.Context, input *decideInput) (*decideOutput, error) {
			s, err := svc.Settings(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			outcome, err := redirect.Decide(input.Body.URL, s)
			if err != nil {
				return nil, mapErr(err)
			}
			return &decideOutput{Body: DecisionResult{
				URL:           input.Body.URL,
				Outcome:       outcome.Kind.String(),
				Target:        outcome.Target,
				MatchedDomain: outcome.MatchedDomain,
			}}, nil
		})
}
