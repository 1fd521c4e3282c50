package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newOfflineSDSStorage(t *testing.T, maxBytes int64) *MinIOSDSStorage {
	t.Helper()
	// minio.New does not dial; validation failures must return before any request.
	client, err := NewMinIOClient("127.0.0.1:1", "access", "secret", false)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return NewMinIOSDSStorage(client, "sds", maxBytes, []string{"application/pdf", " text/plain "})
}

func TestSDSUploadRejectsOversizedFile(t *testing.T) {
	s := newOfflineSDSStorage(t, 8)
	_, err := s.Upload(context.Background(), 1, "cert", strings.NewReader("0123456789"), 10)
	if !errors.Is(err, ErrFileTooBig) {
		t.Fatalf("expected ErrFileTooBig, got %v", err)
	}
}

func TestSDSUploadRejectsEmptyFile(t *testing.T) {
	s := newOfflineSDSStorage(t, 1024)
	_, err := s.Upload(context.Background(), 1, "cert", strings.NewReader(""), 0)
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestSDSUploadSniffsContentType(t *testing.T) {
	s := newOfflineSDSStorage(t, 1024)
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	_, err := s.Upload(context.Background(), 1, "cert", strings.NewReader(png), int64(len(png)))
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestSniffContentTypeStripsParameters(t *testing.T) {
	if got := sniffContentType([]byte("plain text body")); got != "text/plain" {
		t.Fatalf("expected text/plain, got %q", got)
	}
	if got := sniffContentType([]byte("%PDF-1.7\n")); got != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", got)
	}
}
