// Package export renders captured traffic in interchange formats.
package export

import (
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/chromedp/cdproto/har"

	"github.com/dgnsrekt/netinspector/internal/types"
)

const (
	harVersion  = "1.2"
	creatorName = "netinspector"
)

// HAR converts records into an HTTP Archive 1.2 document. Entries are ordered
// by start time; records keep their relative order when starts tie.
func HAR(records []types.CapturedRequest, version string) *har.HAR {
	sorted := make([]types.CapturedRequest, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	entries := make([]*har.Entry, 0, len(sorted))
	for _, rec := range sorted {
		entries = append(entries, harEntry(rec))
	}

	return &har.HAR{
		Log: &har.Log{
			Version: harVersion,
			Creator: &har.Creator{Name: creatorName, Version: version},
			Entries: entries,
		},
	}
}

func harEntry(rec types.CapturedRequest) *har.Entry {
	ms := rec.Duration * 1000
	entry := &har.Entry{
		StartedDateTime: rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Time:            ms,
		Request:         harRequest(rec),
		Response:        harResponse(rec),
		Cache:           &har.Cache{},
		Timings:         &har.Timings{Send: 0, Wait: ms, Receive: 0},
		Comment:         rec.ID,
	}
	return entry
}

func harRequest(rec types.CapturedRequest) *har.Request {
	req := &har.Request{
		Method:      rec.Method,
		URL:         rec.URL,
		HTTPVersion: httpVersion(rec.Protocol),
		Cookies:     []*har.Cookie{},
		Headers:     nameValues(rec.RequestHeaders),
		QueryString: queryString(rec.URL),
		HeadersSize: -1,
		BodySize:    rec.RequestSize,
	}
	if rec.RequestBody != nil {
		req.PostData = &har.PostData{
			MimeType: headerValue(rec.RequestHeaders, "Content-Type"),
			Params:   []*har.Param{},
			Text:     *rec.RequestBody,
		}
	}
	if rec.RequestTruncated {
		req.Comment = "body truncated"
	}
	return req
}

func harResponse(rec types.CapturedRequest) *har.Response {
	content := &har.Content{
		Size:     rec.ResponseSize,
		MimeType: headerValue(rec.ResponseHeaders, "Content-Type"),
	}
	if rec.ResponseBody != nil {
		content.Text = *rec.ResponseBody
	}
	if rec.ResponseTruncated {
		content.Comment = "body truncated, sha256 " + rec.ResponseSHA256
	}

	resp := &har.Response{
		Status:      int64(rec.StatusCode),
		StatusText:  http.StatusText(rec.StatusCode),
		HTTPVersion: httpVersion(rec.Protocol),
		Cookies:     []*har.Cookie{},
		Headers:     nameValues(rec.ResponseHeaders),
		Content:     content,
		RedirectURL: headerValue(rec.ResponseHeaders, "Location"),
		HeadersSize: -1,
		BodySize:    rec.ResponseSize,
	}
	if rec.Error != "" {
		resp.Comment = rec.Error
	}
	return resp
}

func httpVersion(proto string) string {
	if proto == "" {
		return "HTTP/1.1"
	}
	return proto
}

// nameValues returns headers sorted by name for stable output.
func nameValues(h map[string]string) []*har.NameValuePair {
	out := make([]*har.NameValuePair, 0, len(h))
	for name, value := range h {
		out = append(out, &har.NameValuePair{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func queryString(rawURL string) []*har.NameValuePair {
	out := []*har.NameValuePair{}
	u, err := url.Parse(rawURL)
	if err != nil {
		return out
	}
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range q[k] {
			out = append(out, &har.NameValuePair{Name: k, Value: v})
		}
	}
	return out
}

func headerValue(h map[string]string, name string) string {
	if v, ok := h[name]; ok {
		return v
	}
	canonical := http.CanonicalHeaderKey(name)
	for k, v := range h {
		if http.CanonicalHeaderKey(k) == canonical {
			return v
		}
	}
	return ""
}
