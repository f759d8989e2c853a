package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/archive_redirector/internal/tracker"
	"github.com/dgnsrekt/archive_redirector/internal/types"
)

func registerTabHandlers(api huma.API, tr TrackerView, tabs TabLister) {
	type tabsOutput struct {
		Body struct {
			Attached []types.TabInfo    `json:"attached"`
			Tracked  []tracker.TabState `json:"tracked"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "Attached tabs and their handled URLs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*tabsOutput, error) {
			out := &tabsOutput{}
			out.Body.Attached = []types.TabInfo{}
			out.Body.Tracked = []tracker.TabState{}
			if tabs != nil {
				out.Body.Attached = append(out.Body.Attached, tabs.Tabs()...)
			}
			if tr != nil {
				out.Body.Tracked = append(out.Body.Tracked, tr.Snapshot()...)
			}
			return out, nil
		})
}
