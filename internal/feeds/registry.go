package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// Registry download periods exposed by the point API.
const (
	periodLastDay   = "last-day"
	periodLastWeek  = "last-week"
	periodLastMonth = "last-month"
	periodLastYear  = "last-year"
)

// RegistryClient fetches package download counts from the npm point API.
type RegistryClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewRegistryClient creates a downloads client.
// endpoint is the API root, e.g. "https://api.npmjs.org".
func NewRegistryClient(endpoint string) *RegistryClient {
	return &RegistryClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultFeedTimeout},
	}
}

type pointResponse struct {
	Downloads int64 `json:"downloads"`
}

// downloads fetches the count for one package over one period.
// A non-200 response counts as zero: the registry answers 404 for packages
// with no downloads in the period.
func (c *RegistryClient) downloads(ctx context.Context, pkg, period string) (int64, error) {
	url := fmt.Sprintf("%s/downloads/point/%s/%s", c.endpoint, period, pkg)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build registry request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("registry request for %s failed: %w", pkg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("Registry returned non-200, counting zero",
			"package", pkg,
			"period", period,
			"status", resp.StatusCode)
		return 0, nil
	}

	var point pointResponse
	if err := json.NewDecoder(resp.Body).Decode(&point); err != nil {
		return 0, fmt.Errorf("failed to parse registry response for %s: %w", pkg, err)
	}

	return point.Downloads, nil
}

// Fetch retrieves the full download tuple for one package. The four period
// reads are independent and run concurrently.
func (c *RegistryClient) Fetch(ctx context.Context, pkg string) (series.PackageCounts, error) {
	var counts series.PackageCounts

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(period string, dst *int64) {
		g.Go(func() error {
			n, err := c.downloads(gctx, pkg, period)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	fetch(periodLastDay, &counts.LastDay)
	fetch(periodLastWeek, &counts.LastWeek)
	fetch(periodLastMonth, &counts.LastMonth)
	fetch(periodLastYear, &counts.LastYear)

	if err := g.Wait(); err != nil {
		return series.PackageCounts{}, err
	}

	return counts, nil
}
