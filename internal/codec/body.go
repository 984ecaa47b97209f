// Package codec renders captured payloads as human-readable strings.
package codec

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"
)

const indent = "  "

// Encode returns a display form of data. JSON is re-indented, other UTF-8
// text is returned as-is, and anything else reports ok=false so the caller
// can render a placeholder.
func Encode(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", true
	}

	// json.Valid accepts invalid UTF-8 inside strings.
	if !utf8.Valid(data) {
		return "", false
	}
	if pretty, ok := prettyJSON(data); ok {
		return pretty, true
	}
	return string(data), true
}

// EncodePtr is Encode with the absent case mapped to nil.
func EncodePtr(data []byte) *string {
	s, ok := Encode(data)
	if !ok {
		return nil
	}
	return &s
}

// Decompress inflates gzip or deflate payloads that reached the caller still
// encoded. The raw bytes are returned when the encoding is unknown or broken.
func Decompress(data []byte, contentEncoding string) []byte {
	if len(data) == 0 {
		return data
	}

	var r io.ReadCloser
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return data
		}
		r = gr
	case "deflate":
		r = flate.NewReader(bytes.NewReader(data))
	default:
		return data
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return decoded
}

func prettyJSON(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", indent); err != nil {
		return "", false
	}
	return buf.String(), true
}
