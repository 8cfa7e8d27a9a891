// Package api provides the HTTP client for the remote track catalog.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/catalog"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/go-resty/resty/v2"
)

const (
	tracksPath     = "/tracks.json"
	requestTimeout = 30 * time.Second
)

// CatalogClient fetches the track list published at a catalog URL.
type CatalogClient struct {
	client *resty.Client
}

// NewCatalogClient creates a client for the catalog served under baseURL.
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("User-Agent", fmt.Sprintf("Lullaby-CLI/%s", config.AppVersion)),
	}
}

// GetTracks fetches the raw track list.
func (c *CatalogClient) GetTracks(ctx context.Context) ([]catalog.Track, error) {
	resp, err := c.client.R().SetContext(ctx).Get(tracksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("api returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	var response struct {
		Tracks []catalog.Track `json:"tracks"`
	}

	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse tracks response: %w", err)
	}

	return response.Tracks, nil
}

// GetCatalog fetches the track list and validates it into a catalog.
func (c *CatalogClient) GetCatalog(ctx context.Context) (*catalog.Catalog, error) {
	tracks, err := c.GetTracks(ctx)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("remote catalog is empty")
	}
	return catalog.New(tracks)
}
