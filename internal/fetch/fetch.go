// Package fetch implements bulkimport.URLFetcher and bulkimport.ImageDetector
// against an authenticated Cloud Run metadata-extraction service, the same
// service-to-service call shape the teacher uses in
// functions/parkrun-results-source/function.go's fetchViaPlaywright: an
// idtoken-authenticated client when a fetcher URL is configured. Without
// one, FetchMetadata and Detect return an error and make no request.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/supergeri/workoutcanonicalmapper/internal/infra/httputil"
)

// MetadataTimeout and ImageTimeout are the detect-phase budgets per
// spec.md §5: 15s for URL metadata, 120s for image ingestion.
const (
	MetadataTimeout = 15 * time.Second
	ImageTimeout    = 120 * time.Second
)

// Client fetches detect-phase metadata from an external service. Set
// ServiceURL to route through an authenticated Cloud Run service; without
// it, FetchMetadata and Detect return an error and make no request.
type Client struct {
	ServiceURL string

	httpClient *http.Client
}

// NewClient builds a Client from the METADATA_FETCHER_URL environment
// variable, mirroring the teacher's PARKRUN_FETCHER_URL convention.
func NewClient(ctx context.Context) (*Client, error) {
	c := &Client{ServiceURL: os.Getenv("METADATA_FETCHER_URL")}
	if c.ServiceURL == "" {
		c.httpClient = &http.Client{}
		return c, nil
	}
	authClient, err := idtoken.NewClient(ctx, c.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: create authenticated client: %w", err)
	}
	c.httpClient = authClient
	return c, nil
}

type metadataRequest struct {
	URL string `json:"url"`
}

type metadataResponse struct {
	Title         string  `json:"title"`
	ExerciseCount int     `json:"exerciseCount"`
	Confidence    float64 `json:"confidence"`
}

// FetchMetadata implements bulkimport.URLFetcher.
func (c *Client) FetchMetadata(ctx context.Context, url string) (string, int, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, MetadataTimeout)
	defer cancel()

	if c.ServiceURL == "" {
		return "", 0, 0, fmt.Errorf("fetch: METADATA_FETCHER_URL not configured")
	}

	body, err := json.Marshal(metadataRequest{URL: url})
	if err != nil {
		return "", 0, 0, fmt.Errorf("fetch: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServiceURL+"/metadata", bytes.NewReader(body))
	if err != nil {
		return "", 0, 0, fmt.Errorf("fetch: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("fetch: call metadata service: %w", err)
	}
	defer resp.Body.Close()
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return "", 0, 0, err
	}

	var out metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, 0, fmt.Errorf("fetch: decode response: %w", err)
	}
	return out.Title, out.ExerciseCount, out.Confidence, nil
}

type imageRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// Detect implements bulkimport.ImageDetector.
func (c *Client) Detect(ctx context.Context, image []byte) (string, int, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, ImageTimeout)
	defer cancel()

	if c.ServiceURL == "" {
		return "", 0, 0, fmt.Errorf("fetch: METADATA_FETCHER_URL not configured")
	}

	body, err := json.Marshal(imageRequest{ImageBase64: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return "", 0, 0, fmt.Errorf("fetch: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServiceURL+"/detect-image", bytes.NewReader(body))
	if err != nil {
		return "", 0, 0, fmt.Errorf("fetch: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("fetch: call image detector: %w", err)
	}
	defer resp.Body.Close()
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return "", 0, 0, err
	}

	var out metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, 0, fmt.Errorf("fetch: decode response: %w", err)
	}
	return out.Title, out.ExerciseCount, out.Confidence, nil
}
