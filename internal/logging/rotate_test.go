package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterTruncatesWithoutGenerations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revealer.log")
	w, err := newRotatingWriter(path, 1, 0)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	defer w.Close()

	chunk := make([]byte, 512*1024)
	for i := 0; i < 3; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write chunk %d: %v", i, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}
	if info.Size() > 1<<20 {
		t.Fatalf("expected log <= 1MB, got %d", info.Size())
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Fatalf("expected no rotated file, got %v", err)
	}
}

func TestRotatingWriterKeepsGenerations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	w, err := newRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	defer w.Close()

	for _, b := range []byte{'a', 'b', 'c', 'd'} {
		if _, err := w.Write(bytes.Repeat([]byte{b}, 700*1024)); err != nil {
			t.Fatalf("write %c: %v", b, err)
		}
	}

	want := map[string]byte{path: 'd', path + ".1": 'c', path + ".2": 'b'}
	for p, b := range want {
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if len(got) != 700*1024 || got[0] != b {
			t.Fatalf("%s: expected %c generation, got %d bytes starting %q", p, b, len(got), got[:1])
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("expected only two generations, got %v", err)
	}
}
