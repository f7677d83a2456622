package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gabiworld/pipewatch/pkg/types"
)

// Upper bound on a decoded response body.
const maxBodyBytes = 32 << 20

// Live polls the ingestion backend over HTTP.
type Live struct {
	endpoint string
	client   *http.Client
}

// NewLive returns a Live source for the backend at endpoint. A nil client
// uses http.DefaultClient.
func NewLive(endpoint string, client *http.Client) *Live {
	if client == nil {
		client = http.DefaultClient
	}
	return &Live{endpoint: strings.TrimRight(endpoint, "/"), client: client}
}

// Demo is always false for a live source.
func (l *Live) Demo() bool { return false }

// Fetch requests /stats and /jobs concurrently. Either request failing, a
// non-200 status or an undecodable body fails the fetch; partial datasets are
// never returned.
func (l *Live) Fetch(ctx context.Context) (*types.Dataset, error) {
	var ds types.Dataset

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.getJSON(ctx, "/stats", &ds.Stats)
	})
	g.Go(func() error {
		return l.getJSON(ctx, "/jobs", &ds.Jobs)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (l *Live) getJSON(ctx context.Context, path string, dst any) error {
	url := l.endpoint + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("source: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("source: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("source: get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("source: decode %s: %w", path, err)
	}
	return nil
}
