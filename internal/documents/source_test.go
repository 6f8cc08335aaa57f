package documents

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

func TestFetcher_GetFromURL(t *testing.T) {
	body := []byte("%PDF-1.4 test body")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	fetcher := NewFetcher(FetchConfig{Attempts: 1, Timeout: 5 * time.Second})
	data, filename, err := fetcher.GetData(context.Background(), models.SourceInfo{URL: srv.URL + "/reports/site-42.pdf"})
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if string(data) != string(body) {
		t.Errorf("Expected body %q, got %q", body, data)
	}
	if filename != "site-42.pdf" {
		t.Errorf("Expected filename site-42.pdf, got %s", filename)
	}
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	fetcher := NewFetcher(FetchConfig{Attempts: 3})
	data, err := fetcher.GetFromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetFromURL failed: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("Unexpected body %q", data)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
}

func TestFetcher_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := NewFetcher(FetchConfig{Attempts: 4})
	if _, err := fetcher.GetFromURL(context.Background(), srv.URL); err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single call, got %d", calls.Load())
	}
}

func TestFetcher_MaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	fetcher := NewFetcher(FetchConfig{Attempts: 2, MaxBytes: 32})
	if _, err := fetcher.GetFromURL(context.Background(), srv.URL); err == nil {
		t.Error("Expected error for oversized document, got nil")
	}
}

func TestFetcher_NoSource(t *testing.T) {
	_, _, err := NewFetcher(FetchConfig{}).GetData(context.Background(), models.SourceInfo{})
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("Expected ErrNoSource, got %v", err)
	}
}

func TestFetcher_ZoteroMissingCredentials(t *testing.T) {
	_, err := NewFetcher(FetchConfig{}).GetFromZotero(context.Background(), "ABCD1234")
	if err == nil {
		t.Error("Expected error without Zotero credentials, got nil")
	}
}
