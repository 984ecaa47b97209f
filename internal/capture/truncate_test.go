package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestBoundedBuffer(t *testing.T) {
	t.Run("no_truncation_when_within_limit", func(t *testing.T) {
		input := []byte("hello world")
		buf := newBoundedBuffer(len(input))
		_, _ = buf.Write(input)

		if buf.Truncated() {
			t.Fatalf("expected truncated=false, got true")
		}
		if buf.Total() != int64(len(input)) {
			t.Fatalf("expected original size %d, got %d", len(input), buf.Total())
		}
		if buf.SHA256() != "" {
			t.Fatalf("expected empty hash, got %q", buf.SHA256())
		}
		if string(buf.Bytes()) != string(input) {
			t.Fatalf("expected output %q, got %q", string(input), string(buf.Bytes()))
		}
	})

	t.Run("truncates_across_chunks", func(t *testing.T) {
		input := []byte("hello world, streamed in pieces")
		expectedHash := sha256.Sum256(input)

		buf := newBoundedBuffer(5)
		for i := 0; i < len(input); i += 3 {
			end := min(i+3, len(input))
			if n, err := buf.Write(input[i:end]); err != nil || n != end-i {
				t.Fatalf("Write() = %d, %v", n, err)
			}
		}

		if !buf.Truncated() {
			t.Fatalf("expected truncated=true, got false")
		}
		if string(buf.Bytes()) != "hello" {
			t.Fatalf("expected output %q, got %q", "hello", string(buf.Bytes()))
		}
		if buf.Total() != int64(len(input)) {
			t.Fatalf("expected original size %d, got %d", len(input), buf.Total())
		}
		if buf.SHA256() != hex.EncodeToString(expectedHash[:]) {
			t.Fatalf("unexpected hash %q", buf.SHA256())
		}
	})

	t.Run("unlimited_keeps_everything", func(t *testing.T) {
		buf := newBoundedBuffer(0)
		_, _ = buf.Write([]byte("abc"))
		_, _ = buf.Write([]byte("def"))
		if string(buf.Bytes()) != "abcdef" || buf.Truncated() || buf.SHA256() != "" {
			t.Fatalf("unexpected state: %q truncated=%v sha=%q", buf.Bytes(), buf.Truncated(), buf.SHA256())
		}
	})
}
