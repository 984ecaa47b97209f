package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// boundedBuffer keeps the first max bytes written to it while hashing and
// counting the whole stream.
type boundedBuffer struct {
	max   int
	data  []byte
	total int64
	sum   hash.Hash
}

func newBoundedBuffer(max int) *boundedBuffer {
	return &boundedBuffer{max: max, sum: sha256.New()}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.total += int64(len(p))
	b.sum.Write(p)
	keep := p
	if b.max > 0 {
		room := b.max - len(b.data)
		if room <= 0 {
			return len(p), nil
		}
		if len(keep) > room {
			keep = keep[:room]
		}
	}
	b.data = append(b.data, keep...)
	return len(p), nil
}

func (b *boundedBuffer) Bytes() []byte { return b.data }

func (b *boundedBuffer) Total() int64 { return b.total }

func (b *boundedBuffer) Truncated() bool {
	return int64(len(b.data)) < b.total
}

// SHA256 returns the hex digest of everything written, or "" when nothing was
// dropped.
func (b *boundedBuffer) SHA256() string {
	if !b.Truncated() {
		return ""
	}
	return hex.EncodeToString(b.sum.Sum(nil))
}
