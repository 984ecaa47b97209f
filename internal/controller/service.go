package controller

import (
	"context"
	"strings"

	"github.com/chromedp/cdproto/har"

	"github.com/dgnsrekt/netinspector/internal/capture"
	"github.com/dgnsrekt/netinspector/internal/export"
	"github.com/dgnsrekt/netinspector/internal/types"
)

// Stats summarizes the capture store for the health endpoint.
type Stats struct {
	Records     int `json:"records"`
	Pending     int `json:"pending"`
	Subscribers int `json:"subscribers"`
}

// Service exposes the capture store to the inspector API.
type Service struct {
	store   *capture.Store
	version string
}

// NewService returns a Service over store. version is stamped into HAR exports.
func NewService(store *capture.Store, version string) *Service {
	return &Service{store: store, version: version}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &capture.CodedError{Code: capture.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) ListRequests(ctx context.Context) ([]types.CapturedRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetAllRequests(), nil
}

func (s *Service) GetRequest(ctx context.Context, id string) (types.CapturedRequest, error) {
	if err := ctx.Err(); err != nil {
		return types.CapturedRequest{}, err
	}
	if err := s.requireNonEmpty(id, "id"); err != nil {
		return types.CapturedRequest{}, err
	}
	rec, ok := s.store.GetRequest(strings.TrimSpace(id))
	if !ok {
		return types.CapturedRequest{}, &capture.CodedError{Code: capture.CodeNotFound, Message: "request " + id + " not found"}
	}
	return rec, nil
}

func (s *Service) ClearRequests(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.store.ClearRequests()
	return nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	return Stats{
		Records:     s.store.Count(),
		Pending:     s.store.PendingCount(),
		Subscribers: s.store.SubscriberCount(),
	}, nil
}

func (s *Service) ExportHAR(ctx context.Context) (*har.HAR, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return export.HAR(s.store.GetAllRequests(), s.version), nil
}

func (s *Service) Subscribe() (int64, <-chan types.CapturedRequest) {
	return s.store.Subscribe()
}

func (s *Service) Unsubscribe(id int64) {
	s.store.Unsubscribe(id)
}
