package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
)

// ErrInvalidFilename rejects sidecar names that are empty or could leave
// the run's files/ directory.
var ErrInvalidFilename = errors.New("invalid sidecar filename")

// CTContentType is the media type of CT sidecars.
const CTContentType = "chemical/x-ct"

// FileWriter stores sidecar files (CT exports) beside a run's records.
type FileWriter interface {
	PutFile(ctx context.Context, filename, contentType string, data []byte) error
}

// PutFile writes data under the run's files/ directory. The store is
// opened lazily and shared by later calls. Sidecars bypass dataset
// manifests, so the content type is not recorded.
func (c *LodeClient) PutFile(ctx context.Context, filename, _ string, data []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	if c.storeErr != nil {
		return WrapInitError(c.storeErr, c.config.Dataset)
	}

	key := c.filePath(filename)
	if err := c.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, key)
	}
	return nil
}

func (c *LodeClient) filePath(filename string) string {
	return path.Join("datasets", c.config.Dataset, "partitions", c.runPartition(), "files", filename)
}

func validateFilename(name string) error {
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// CTFilename turns a sequence label into a CT sidecar name. Bytes outside
// [A-Za-z0-9._-] and repeated dots become underscores; an empty label is
// "structure".
func CTFilename(label string) string {
	if label == "" {
		label = "structure"
	}
	b := []byte(label)
	for i, ch := range b {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '-', ch == '_':
		case ch == '.' && i > 0 && label[i-1] != '.':
		default:
			b[i] = '_'
		}
	}
	return string(b) + ".ct"
}

// StubFileWriter keeps sidecars in memory. Setting Err fails every call.
type StubFileWriter struct {
	mu    sync.Mutex
	Files []StubFileRecord
	Err   error
}

type StubFileRecord struct {
	Filename    string
	ContentType string
	Data        []byte
}

func NewStubFileWriter() *StubFileWriter {
	return &StubFileWriter{}
}

func (w *StubFileWriter) PutFile(_ context.Context, filename, contentType string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Files = append(w.Files, StubFileRecord{filename, contentType, bytes.Clone(data)})
	return nil
}

var (
	_ FileWriter = (*LodeClient)(nil)
	_ FileWriter = (*StubFileWriter)(nil)
)
