package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dgnsrekt/netinspector/internal/types"
)

func strPtr(s string) *string { return &s }

func TestHAR(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []types.CapturedRequest{
		{
			ID:              "late",
			URL:             "https://api.example.com/items?b=2&a=1&a=3",
			Method:          "POST",
			Protocol:        "HTTP/2.0",
			RequestHeaders:  map[string]string{"Content-Type": "application/json", "Accept": "*/*"},
			RequestBody:     strPtr("{\n  \"name\": \"x\"\n}"),
			RequestSize:     12,
			ResponseHeaders: map[string]string{"Content-Type": "application/json", "Location": "/items/9"},
			ResponseBody:    strPtr("{}"),
			ResponseSize:    2,
			StatusCode:      201,
			Timestamp:       base.Add(time.Second),
			Duration:        0.25,
		},
		{
			ID:              "early",
			URL:             "http://example.com/",
			Method:          "GET",
			RequestHeaders:  map[string]string{},
			ResponseHeaders: map[string]string{"content-type": "image/png"},
			ResponseSize:    4096,
			StatusCode:      200,
			Timestamp:       base,
			Duration:        0.1,
		},
	}

	doc := HAR(records, "test")

	if doc.Log.Version != "1.2" || doc.Log.Creator.Version != "test" {
		t.Fatalf("log header = %+v / %+v", doc.Log, doc.Log.Creator)
	}
	if len(doc.Log.Entries) != 2 {
		t.Fatalf("entries = %d; want 2", len(doc.Log.Entries))
	}

	first, second := doc.Log.Entries[0], doc.Log.Entries[1]
	if first.Comment != "early" || second.Comment != "late" {
		t.Fatalf("entry order = %s, %s; want early, late", first.Comment, second.Comment)
	}

	t.Run("request", func(t *testing.T) {
		req := second.Request
		if req.Method != "POST" || req.HTTPVersion != "HTTP/2.0" {
			t.Fatalf("request = %+v", req)
		}
		if req.PostData == nil || req.PostData.MimeType != "application/json" {
			t.Fatalf("post data = %+v", req.PostData)
		}
		if len(req.Headers) != 2 || req.Headers[0].Name != "Accept" {
			t.Fatalf("headers not sorted: %+v", req.Headers)
		}
		want := []string{"a=1", "a=3", "b=2"}
		if len(req.QueryString) != len(want) {
			t.Fatalf("query = %+v", req.QueryString)
		}
		for i, nv := range req.QueryString {
			if got := nv.Name + "=" + nv.Value; got != want[i] {
				t.Fatalf("query[%d] = %s; want %s", i, got, want[i])
			}
		}
	})

	t.Run("response", func(t *testing.T) {
		resp := second.Response
		if resp.Status != 201 || resp.StatusText != "Created" || resp.RedirectURL != "/items/9" {
			t.Fatalf("response = %+v", resp)
		}
		if resp.Content.Text != "{}" || resp.Content.Size != 2 {
			t.Fatalf("content = %+v", resp.Content)
		}
		if second.Time != 250 {
			t.Fatalf("time = %v; want 250", second.Time)
		}
	})

	t.Run("absent_body", func(t *testing.T) {
		if first.Request.PostData != nil {
			t.Fatalf("GET post data = %+v", first.Request.PostData)
		}
		if first.Response.Content.Text != "" || first.Response.Content.MimeType != "image/png" {
			t.Fatalf("content = %+v", first.Response.Content)
		}
		if first.Request.HTTPVersion != "HTTP/1.1" {
			t.Fatalf("default version = %q", first.Request.HTTPVersion)
		}
	})

	t.Run("marshals", func(t *testing.T) {
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var generic map[string]any
		if err := json.Unmarshal(data, &generic); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if _, ok := generic["log"].(map[string]any)["entries"].([]any); !ok {
			t.Fatalf("entries missing from %s", data)
		}
	})
}

func TestHAREmpty(t *testing.T) {
	doc := HAR(nil, "v")
	if doc.Log.Entries == nil || len(doc.Log.Entries) != 0 {
		t.Fatalf("entries = %#v; want empty non-nil", doc.Log.Entries)
	}
}
