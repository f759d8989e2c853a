package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/archive_redirector/internal/settings"
)

type settingsOutput struct {
	Body settings.Settings
}

func registerHealthHandlers(api huma.API) {
	type healthOutput struct {
		Body struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.Version = Version
			return out, nil
		})
}

func registerSettingsHandlers(api huma.API, svc SettingsService) {
	huma.Register(api, huma.Operation{OperationID: "get-settings", Method: http.MethodGet, Path: "/api/v1/settings", Summary: "Get redirect settings", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct{}) (*settingsOutput, error) {
			s, err := svc.Settings(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &settingsOutput{Body: s}, nil
		})

	type skipHomepageInput struct {
		Body struct {
			Enabled bool `json:"enabled" doc:"Leave bare homepages of listed domains alone"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-skip-homepage", Method: http.MethodPut, Path: "/api/v1/settings/skip-homepage", Summary: "Toggle homepage skipping", Tags: []string{"Settings"}},
		func(ctx context.Context, input *skipHomepageInput) (*settingsOutput, error) {
			if err := svc.SetSkipHomepage(ctx, input.Body.Enabled); err != nil {
				return nil, mapErr(err)
			}
			s, err := svc.Settings(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &settingsOutput{Body: s}, nil
		})
}
