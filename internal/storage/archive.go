package storage

import (
	"github.com/google/uuid"

	"github.com/dgnsrekt/netinspector/internal/types"
)

// Archive is a write-only JSONL record of completed captures, one rotating
// file per target host. Records are never read back.
type Archive struct {
	session  string
	registry *WriterRegistry
}

// NewArchive creates an archive rooted at dir.
func NewArchive(dir string, bufferSize, maxSizeMB int) *Archive {
	session := SessionName(uuid.NewString())
	return &Archive{
		session:  session,
		registry: NewWriterRegistry(dir, session, bufferSize, maxSizeMB),
	}
}

// Session returns the file name shared by this archive's writers.
func (a *Archive) Session() string { return a.session }

// Write queues rec on the writer for its host.
func (a *Archive) Write(rec types.CapturedRequest) error {
	w, err := a.registry.Writer(HostSegment(rec.URL))
	if err != nil {
		return err
	}
	return w.Write(rec)
}

// Close flushes and closes every host writer.
func (a *Archive) Close() error {
	return a.registry.Close()
}
