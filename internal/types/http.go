package types

import "time"

// CapturedRequest represents one completed HTTP transaction observed by the interceptor.
type CapturedRequest struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Method            string            `json:"method"`
	Protocol          string            `json:"protocol,omitempty"`
	RequestHeaders    map[string]string `json:"request_headers"`
	RequestBody       *string           `json:"request_body,omitempty"`
	RequestSize       int64             `json:"request_size"`
	RequestTruncated  bool              `json:"request_truncated,omitempty"`
	ResponseHeaders   map[string]string `json:"response_headers"`
	ResponseBody      *string           `json:"response_body,omitempty"`
	ResponseSize      int64             `json:"response_size"`
	ResponseTruncated bool              `json:"response_truncated,omitempty"`
	ResponseSHA256    string            `json:"response_sha256,omitempty"`
	StatusCode        int               `json:"status_code"`
	Timestamp         time.Time         `json:"timestamp"`
	Duration          float64           `json:"duration"`
	Error             string            `json:"error,omitempty"`
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r CapturedRequest) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Clone returns a deep copy so callers can never mutate a stored record.
func (r CapturedRequest) Clone() CapturedRequest {
	out := r
	out.RequestHeaders = cloneHeaders(r.RequestHeaders)
	out.ResponseHeaders = cloneHeaders(r.ResponseHeaders)
	if r.RequestBody != nil {
		body := *r.RequestBody
		out.RequestBody = &body
	}
	if r.ResponseBody != nil {
		body := *r.ResponseBody
		out.ResponseBody = &body
	}
	return out
}

func cloneHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
