package letters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestChromiumRendererSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %s", ct)
		}
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	r := NewChromiumRenderer(srv.URL, time.Second)
	pdf, err := r.Render(context.Background(), "<html></html>", DefaultOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(pdf) != "%PDF-1.4 fake" {
		t.Fatalf("unexpected body %q", pdf)
	}
}

func TestChromiumRendererFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "browser crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewChromiumRenderer(srv.URL, time.Second)
	_, err := r.Render(context.Background(), "<html></html>", DefaultOptions())
	if !errors.Is(err, ErrRenderingFailed) {
		t.Fatalf("expected ErrRenderingFailed, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("render must not retry, got %d calls", calls.Load())
	}
}

func TestChromiumRendererUnreachable(t *testing.T) {
	r := NewChromiumRenderer("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := r.Render(context.Background(), "<html></html>", DefaultOptions())
	if !errors.Is(err, ErrRenderingFailed) {
		t.Fatalf("expected ErrRenderingFailed, got %v", err)
	}
}

func TestChromiumRendererEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewChromiumRenderer(srv.URL, time.Second)
	_, err := r.Render(context.Background(), "<html></html>", DefaultOptions())
	if !errors.Is(err, ErrRenderingFailed) {
		t.Fatalf("expected ErrRenderingFailed, got %v", err)
	}
}
