// Package feeds holds the HTTP clients for the two upstream metrics feeds:
// the ISP broadband portal and the npm registry downloads API.
package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

const defaultFeedTimeout = 30 * time.Second

// BroadbandClient fetches the cumulative usage counters from the ISP portal.
type BroadbandClient struct {
	endpoint       string
	subscriberCode string
	httpClient     *http.Client
}

// NewBroadbandClient creates a portal client for one subscriber.
func NewBroadbandClient(endpoint, subscriberCode string) *BroadbandClient {
	return &BroadbandClient{
		endpoint:       endpoint,
		subscriberCode: subscriberCode,
		httpClient:     &http.Client{Timeout: defaultFeedTimeout},
	}
}

// portalResponse mirrors the portal's JSON shape. "curretUsage" is the
// upstream's own spelling; the octet values arrive quoted or bare depending
// on the portal version, which decimal handles either way.
type portalResponse struct {
	CurretUsage struct {
		DownloadOctets decimal.Decimal `json:"downloadOctets"`
		UploadOctets   decimal.Decimal `json:"uploadOctets"`
		TotalOctets    decimal.Decimal `json:"totalOctets"`
	} `json:"curretUsage"`
	Balance struct {
		TotalOctets decimal.Decimal `json:"totalOctets"`
	} `json:"balance"`
}

// Fetch posts the subscriber code to the portal and parses the usage counters.
// An empty result array is not an error: the portal occasionally returns one
// and the sample is simply skipped, so both return values are nil.
func (c *BroadbandClient) Fetch(ctx context.Context) (*series.BroadbandReading, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	if err := writer.WriteField("subscriberCode", c.subscriberCode); err != nil {
		return nil, fmt.Errorf("failed to build portal form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build portal form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &form)
	if err != nil {
		return nil, fmt.Errorf("failed to build portal request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read portal response: %w", err)
	}

	var result []portalResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse portal response: %w", err)
	}

	if len(result) != 1 {
		return nil, nil
	}

	usage := result[0]
	return &series.BroadbandReading{
		Download: usage.CurretUsage.DownloadOctets,
		Upload:   usage.CurretUsage.UploadOctets,
		Balance:  usage.Balance.TotalOctets,
		Total:    usage.CurretUsage.TotalOctets,
	}, nil
}
