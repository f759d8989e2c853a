package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/archive_redirector/internal/settings"
)

type domainsOutput struct {
	Body struct {
		Domains []string `json:"domains"`
	}
}

func registerDomainHandlers(api huma.API, svc SettingsService, rec Recommender) {
	type listInput struct {
		Sorted bool `query:"sorted" doc:"Sort alphabetically instead of match order"`
	}
	huma.Register(api, huma.Operation{OperationID: "list-domains", Method: http.MethodGet, Path: "/api/v1/domains", Summary: "List redirected domains", Tags: []string{"Domains"}},
		func(ctx context.Context, input *listInput) (*domainsOutput, error) {
			s, err := svc.Settings(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &domainsOutput{}
			out.Body.Domains = s.Domains
			if input.Sorted {
				out.Body.Domains = settings.SortedDomains(s.Domains)
			}
			return out, nil
		})

	type addInput struct {
		Body struct {
			Domain string `json:"domain" doc:"Hostname or URL; scheme, www. and path are stripped"`
		}
	}
	type addOutput struct {
		Body struct {
			Domain string `json:"domain"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "add-domain", Method: http.MethodPost, Path: "/api/v1/domains", Summary: "Add a domain", Tags: []string{"Domains"}, DefaultStatus: http.StatusCreated},
		func(ctx context.Context, input *addInput) (*addOutput, error) {
			domain, err := svc.AddDomain(ctx, input.Body.Domain)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &addOutput{}
			out.Body.Domain = domain
			return out, nil
		})

	type domainPathInput struct {
		Domain string `path:"domain"`
	}
	huma.Register(api, huma.Operation{OperationID: "remove-domain", Method: http.MethodDelete, Path: "/api/v1/domains/{domain}", Summary: "Remove a domain", Tags: []string{"Domains"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *domainPathInput) (*struct{}, error) {
			if err := svc.RemoveDomain(ctx, input.Domain); err != nil {
				return nil, mapErr(err)
			}
			return nil, nil
		})

	huma.Register(api, huma.Operation{OperationID: "clear-domains", Method: http.MethodDelete, Path: "/api/v1/domains", Summary: "Remove every domain", Tags: []string{"Domains"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *struct{}) (*struct{}, error) {
			if err := svc.ClearDomains(ctx); err != nil {
				return nil, mapErr(err)
			}
			return nil, nil
		})

	if rec == nil {
		return
	}

	type mergeOutput struct {
		Body settings.MergeResult
	}
	huma.Register(api, huma.Operation{OperationID: "add-recommended-domains", Method: http.MethodPost, Path: "/api/v1/domains/recommended", Summary: "Merge the recommended domain list", Tags: []string{"Domains"}},
		func(ctx context.Context, input *struct{}) (*mergeOutput, error) {
			candidates, err := rec.Fetch(ctx)
			if err != nil {
				return nil, huma.Error502BadGateway(fmt.Sprintf("fetch recommended domains: %v", err))
			}
			res, err := svc.MergeDomains(ctx, candidates)
			if err != nil {
				return nil, mapErr(err)
			}
			return &mergeOutput{Body: res}, nil
		})
}
