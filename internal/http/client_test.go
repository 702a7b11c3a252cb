package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_FetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "memories-downloader" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	body, contentType, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("body = %q", body)
	}
	if contentType != "application/zip" {
		t.Errorf("contentType = %q", contentType)
	}
}

func TestClient_FetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	_, _, err := client.Fetch(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", statusErr.StatusCode)
	}
}

func TestClient_FetchRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(5 * time.Second)
	if _, _, err := client.Fetch(ctx, server.URL); err == nil {
		t.Fatal("expected error when context deadline passes")
	}
}
