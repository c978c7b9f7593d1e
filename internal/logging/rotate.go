package logging

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// rotatingWriter caps a log file at maxBytes. On overflow the file shifts to
// <path>.1, older generations shift up and anything past keep is dropped.
// With keep == 0 the file is simply truncated.
type rotatingWriter struct {
	path     string
	maxBytes int64
	keep     int

	mu   sync.Mutex
	file *os.File
	size int64
}

func newRotatingWriter(path string, maxMB, keep int) (*rotatingWriter, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	if keep < 0 {
		keep = 0
	}
	w := &rotatingWriter{path: path, maxBytes: int64(maxMB) << 20, keep: keep}
	if err := w.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		if err := w.open(os.O_APPEND); err != nil {
			return 0, err
		}
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *rotatingWriter) rotate() error {
	_ = w.file.Close()
	w.file = nil
	if w.keep == 0 {
		return w.open(os.O_TRUNC)
	}
	for i := w.keep - 1; i >= 1; i-- {
		err := os.Rename(generation(w.path, i), generation(w.path, i+1))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := os.Rename(w.path, generation(w.path, 1)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return w.open(os.O_TRUNC)
}

func (w *rotatingWriter) open(mode int) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func generation(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}
