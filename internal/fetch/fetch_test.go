package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestFetchMetadataErrorsWhenUnconfigured(t *testing.T) {
	c := &Client{httpClient: &http.Client{}}
	_, _, _, err := c.FetchMetadata(context.Background(), "https://example.com/workout")
	if err == nil {
		t.Fatal("expected error when ServiceURL is unconfigured")
	}
}

func TestFetchMetadataParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata" {
			t.Errorf("got path %q, want /metadata", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(metadataResponse{
			Title: "5k Tempo Run", ExerciseCount: 1, Confidence: 0.9,
		})
	}))
	defer srv.Close()

	c := &Client{ServiceURL: srv.URL, httpClient: srv.Client()}
	title, count, confidence, err := c.FetchMetadata(context.Background(), "https://example.com/workout")
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if title != "5k Tempo Run" || count != 1 || confidence != 0.9 {
		t.Errorf("got (%q, %d, %v), want (5k Tempo Run, 1, 0.9)", title, count, confidence)
	}
}

func TestFetchMetadataPropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{ServiceURL: srv.URL, httpClient: srv.Client()}
	_, _, _, err := c.FetchMetadata(context.Background(), "https://example.com/workout")
	if err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestNewClientFallsBackWithoutServiceURL(t *testing.T) {
	os.Unsetenv("METADATA_FETCHER_URL")
	c, err := NewClient(context.Background())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.ServiceURL != "" {
		t.Errorf("got ServiceURL %q, want empty", c.ServiceURL)
	}
}
