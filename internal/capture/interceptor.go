package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/netinspector/internal/codec"
	"github.com/dgnsrekt/netinspector/internal/types"
)

const defaultMaxBodyBytes = 10 * 1024 * 1024

type markerKey struct{}

// WithMarker returns a context whose requests are never claimed by an Interceptor.
func WithMarker(ctx context.Context) context.Context {
	return context.WithValue(ctx, markerKey{}, true)
}

// IsMarked reports whether req was already claimed by an Interceptor.
func IsMarked(req *http.Request) bool {
	marked, _ := req.Context().Value(markerKey{}).(bool)
	return marked
}

// Options tunes an Interceptor.
type Options struct {
	// MaxBodyBytes caps the buffered copy of each body. Zero uses the default,
	// negative disables the cap.
	MaxBodyBytes int
	// RecordFailures stores a record for transactions that fail before
	// completing. Off by default.
	RecordFailures bool
}

// Interceptor is an http.RoundTripper that shadows claimed requests through
// the next transport and records each completed transaction in a Store.
type Interceptor struct {
	next           http.RoundTripper
	store          *Store
	maxBodyBytes   int
	recordFailures bool
	now            func() time.Time
}

// NewInterceptor wraps next. A nil next uses http.DefaultTransport as it was
// at construction time.
func NewInterceptor(next http.RoundTripper, store *Store, opts Options) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	maxBody := opts.MaxBodyBytes
	switch {
	case maxBody == 0:
		maxBody = defaultMaxBodyBytes
	case maxBody < 0:
		maxBody = 0
	}
	return &Interceptor{
		next:           next,
		store:          store,
		maxBodyBytes:   maxBody,
		recordFailures: opts.RecordFailures,
		now:            time.Now,
	}
}

// Unwrap returns the transport the interceptor delegates to.
func (i *Interceptor) Unwrap() http.RoundTripper { return i.next }

// CanClaim reports whether the interceptor takes ownership of req.
func (i *Interceptor) CanClaim(req *http.Request) bool {
	if req == nil || req.URL == nil || IsMarked(req) {
		return false
	}
	switch strings.ToLower(req.URL.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if !i.CanClaim(req) {
		return i.next.RoundTrip(req)
	}

	tx := &transaction{
		interceptor: i,
		id:          uuid.NewString(),
		req:         req,
		reqHeaders:  flattenHeader(req.Header),
		reqBuf:      newBoundedBuffer(i.maxBodyBytes),
		respBuf:     newBoundedBuffer(i.maxBodyBytes),
	}

	shadow := req.Clone(WithMarker(req.Context()))
	if req.Body != nil && req.Body != http.NoBody {
		tx.hasReqBody = true
		shadow.Body = &teeBody{rc: req.Body, tx: tx}
	}

	tx.start = i.store.StartRequest(tx.id)
	slog.Debug("Capture claimed request", "request_id", tx.id, "method", req.Method, "url", req.URL.Redacted())

	resp, err := i.next.RoundTrip(shadow)
	if err != nil {
		tx.fail(nil, err)
		return nil, err
	}

	tx.resp = resp
	tx.touch()
	resp.Request = req
	if resp.Body == nil || resp.Body == http.NoBody {
		tx.complete()
		return resp, nil
	}
	resp.Body = &captureBody{rc: resp.Body, tx: tx}
	return resp, nil
}

// transaction carries the state of one claimed request from Sending to
// Finalized or Failed.
type transaction struct {
	interceptor *Interceptor
	id          string
	req         *http.Request
	reqHeaders  map[string]string
	resp        *http.Response
	start       time.Time
	hasReqBody  bool

	mu      sync.Mutex
	reqBuf  *boundedBuffer
	respBuf *boundedBuffer
	// end is when the last response byte or EOF was seen.
	end time.Time
	// partial is set when the caller closed the body before EOF.
	partial bool

	once sync.Once
}

func (tx *transaction) complete() {
	tx.once.Do(func() {
		rec := tx.record()
		tx.interceptor.store.AddRequest(rec)
		slog.Debug("Capture finalized",
			"request_id", tx.id,
			"status", rec.StatusCode,
			"duration_s", rec.Duration)
	})
}

func (tx *transaction) touch() {
	tx.mu.Lock()
	tx.end = tx.interceptor.now()
	tx.mu.Unlock()
}

func (tx *transaction) fail(resp *http.Response, err error) {
	tx.once.Do(func() {
		if !tx.interceptor.recordFailures {
			tx.interceptor.store.AbandonRequest(tx.id)
			slog.Debug("Capture dropped after transport error", "request_id", tx.id, "error", err)
			return
		}
		if resp != nil {
			tx.resp = resp
		}
		rec := tx.record()
		rec.Error = err.Error()
		tx.interceptor.store.AddRequest(rec)
	})
}

func (tx *transaction) cancel() {
	tx.once.Do(func() {
		tx.interceptor.store.AbandonRequest(tx.id)
		slog.Debug("Capture cancelled before completion", "request_id", tx.id)
	})
}

func (tx *transaction) record() types.CapturedRequest {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	end := tx.end
	if end.IsZero() {
		end = tx.interceptor.now()
	}

	method := strings.ToUpper(tx.req.Method)
	if method == "" {
		method = http.MethodGet
	}

	rec := types.CapturedRequest{
		ID:              tx.id,
		URL:             tx.req.URL.String(),
		Method:          method,
		RequestHeaders:  tx.reqHeaders,
		ResponseHeaders: map[string]string{},
		Timestamp:       tx.start.UTC(),
		Duration:        end.Sub(tx.start).Seconds(),
	}

	if tx.hasReqBody {
		rec.RequestBody = codec.EncodePtr(tx.reqBuf.Bytes())
		rec.RequestSize = tx.reqBuf.Total()
		rec.RequestTruncated = tx.reqBuf.Truncated()
	}

	if tx.resp != nil {
		rec.StatusCode = tx.resp.StatusCode
		rec.Protocol = tx.resp.Proto
		rec.ResponseHeaders = flattenHeader(tx.resp.Header)
		body := tx.respBuf.Bytes()
		if !tx.respBuf.Truncated() && !tx.partial {
			body = codec.Decompress(body, tx.resp.Header.Get("Content-Encoding"))
		}
		rec.ResponseBody = codec.EncodePtr(body)
		rec.ResponseSize = tx.respBuf.Total()
		rec.ResponseTruncated = tx.respBuf.Truncated() ||
			(tx.partial && tx.resp.ContentLength >= 0 && tx.respBuf.Total() < tx.resp.ContentLength)
		rec.ResponseSHA256 = tx.respBuf.SHA256()
	}
	return rec
}

// teeBody copies request bytes into the capture buffer as the transport sends them.
type teeBody struct {
	rc io.ReadCloser
	tx *transaction
}

func (b *teeBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.tx.mu.Lock()
		_, _ = b.tx.reqBuf.Write(p[:n])
		b.tx.mu.Unlock()
	}
	return n, err
}

func (b *teeBody) Close() error { return b.rc.Close() }

// captureBody forwards response bytes to the caller unmodified while
// buffering them. EOF finalizes the transaction. Close before EOF finalizes
// with the bytes seen so far unless the request context was cancelled.
type captureBody struct {
	rc io.ReadCloser
	tx *transaction
}

func (b *captureBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 || err != nil {
		b.tx.mu.Lock()
		_, _ = b.tx.respBuf.Write(p[:n])
		b.tx.end = b.tx.interceptor.now()
		b.tx.mu.Unlock()
	}
	switch {
	case errors.Is(err, io.EOF):
		b.tx.complete()
	case err != nil:
		b.tx.fail(b.tx.resp, err)
	}
	return n, err
}

func (b *captureBody) Close() error {
	if b.tx.req.Context().Err() != nil {
		b.tx.cancel()
	} else {
		b.tx.mu.Lock()
		b.tx.partial = true
		b.tx.mu.Unlock()
		b.tx.complete()
	}
	return b.rc.Close()
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		out[k] = strings.Join(vals, ", ")
	}
	return out
}
