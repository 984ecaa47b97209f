package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chromedp/cdproto/har"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/netinspector/internal/capture"
	"github.com/dgnsrekt/netinspector/internal/controller"
	"github.com/dgnsrekt/netinspector/internal/types"
)

// Service is the capture surface the API handlers call.
type Service interface {
	ListRequests(ctx context.Context) ([]types.CapturedRequest, error)
	GetRequest(ctx context.Context, id string) (types.CapturedRequest, error)
	ClearRequests(ctx context.Context) error
	Stats(ctx context.Context) (controller.Stats, error)
	ExportHAR(ctx context.Context) (*har.HAR, error)
	Subscribe() (int64, <-chan types.CapturedRequest)
	Unsubscribe(id int64)
}

const apiTitle = "Network Inspector API"

// NewServer builds the inspector router: huma operations under /api/v1,
// the live feeds and the docs page.
func NewServer(svc Service, version string) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig(apiTitle, version)
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusFound)
	})
	router.Get("/api/v1/stream", sseHandler(svc))
	router.Get("/api/v1/ws", wsHandler(svc))

	registerRequestHandlers(api, svc)
	registerMiscHandlers(api, svc, version)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *capture.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case capture.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case capture.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case capture.CodeClosed:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
