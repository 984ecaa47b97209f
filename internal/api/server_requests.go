package api

import (
	"context"
	"net/http"

	"github.com/chromedp/cdproto/har"
	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/netinspector/internal/types"
)

func registerRequestHandlers(api huma.API, svc Service) {
	type listOutput struct {
		Body struct {
			Requests []types.CapturedRequest `json:"requests"`
			Count    int                     `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-requests",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests",
		Summary:     "List captured requests in completion order",
		Tags:        []string{"Requests"},
	}, func(ctx context.Context, input *struct{}) (*listOutput, error) {
		recs, err := svc.ListRequests(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &listOutput{}
		out.Body.Requests = recs
		out.Body.Count = len(recs)
		return out, nil
	})

	type getInput struct {
		ID string `path:"id" doc:"Capture ID"`
	}
	type requestOutput struct {
		Body types.CapturedRequest
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-request",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests/{id}",
		Summary:     "Get one captured request",
		Tags:        []string{"Requests"},
	}, func(ctx context.Context, input *getInput) (*requestOutput, error) {
		rec, err := svc.GetRequest(ctx, input.ID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &requestOutput{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "clear-requests",
		Method:        http.MethodDelete,
		Path:          "/api/v1/requests",
		Summary:       "Remove all captured requests",
		Tags:          []string{"Requests"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct{}) (*struct{}, error) {
		if err := svc.ClearRequests(ctx); err != nil {
			return nil, mapErr(err)
		}
		return nil, nil
	})

	type harOutput struct {
		ContentDisposition string `header:"Content-Disposition"`
		Body               *har.HAR
	}
	huma.Register(api, huma.Operation{
		OperationID: "export-har",
		Method:      http.MethodGet,
		Path:        "/api/v1/export/har",
		Summary:     "Export captured requests as HAR 1.2",
		Tags:        []string{"Export"},
	}, func(ctx context.Context, input *struct{}) (*harOutput, error) {
		doc, err := svc.ExportHAR(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		return &harOutput{
			ContentDisposition: `attachment; filename="netinspector.har"`,
			Body:               doc,
		}, nil
	})
}

func registerMiscHandlers(api huma.API, svc Service, version string) {
	type healthOutput struct {
		Body struct {
			Status      string `json:"status"`
			Version     string `json:"version"`
			Records     int    `json:"records"`
			Pending     int    `json:"pending"`
			Subscribers int    `json:"subscribers"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Inspector health and store counters",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*healthOutput, error) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &healthOutput{}
		out.Body.Status = "ok"
		out.Body.Version = version
		out.Body.Records = stats.Records
		out.Body.Pending = stats.Pending
		out.Body.Subscribers = stats.Subscribers
		return out, nil
	})
}
