package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type memWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *memWriter) Close() error {
	w.closed = true
	return w.closeErr
}

type memBucket struct {
	objects  map[string]*memWriter
	closeErr error
}

func (b *memBucket) NewWriter(ctx context.Context, object string) io.WriteCloser {
	if b.objects == nil {
		b.objects = make(map[string]*memWriter)
	}
	w := &memWriter{closeErr: b.closeErr}
	b.objects[object] = w
	return w
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUploadFile(t *testing.T) {
	bucket := &memBucket{}
	u := New(bucket, "ledgers", "exports/")
	src := writeFile(t, "card_01.csv", "Index,Date\n0,2022-01-01\n")

	uri, err := u.UploadFile(context.Background(), src)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}

	if uri != "gs://ledgers/exports/card_01.csv" {
		t.Errorf("uri = %q", uri)
	}
	w, ok := bucket.objects["exports/card_01.csv"]
	if !ok {
		t.Fatalf("object not written; have %v", bucket.objects)
	}
	if !w.closed || w.String() != "Index,Date\n0,2022-01-01\n" {
		t.Errorf("object closed=%v content=%q", w.closed, w.String())
	}
}

func TestUploadFileErrors(t *testing.T) {
	u := New(&memBucket{}, "ledgers", "")
	if _, err := u.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}

	finalize := errors.New("precondition failed")
	u = New(&memBucket{closeErr: finalize}, "ledgers", "")
	if _, err := u.UploadFile(context.Background(), writeFile(t, "a.json", "{}")); !errors.Is(err, finalize) {
		t.Errorf("error = %v, want wrapped %v", err, finalize)
	}
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "out.xml"},
		{"ledgers", "ledgers/out.xml"},
		{"ledgers/", "ledgers/out.xml"},
		{"a/b/", "a/b/out.xml"},
	}
	for _, tt := range tests {
		u := New(&memBucket{}, "bkt", tt.prefix)
		if got := u.ObjectName("/tmp/output/out.xml"); got != tt.want {
			t.Errorf("prefix %q: ObjectName() = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}
