package aemo

import (
	"context"
	"errors"
	"fmt"
	"time"

	xhttp "GridPull/pkg/http"
)

// ErrMissingSeries is returned when the upstream response lacks the 5MIN
// array. A cycle that hits this is aborted; nothing is persisted.
var ErrMissingSeries = errors.New("aemo: response missing 5MIN series")

// RawInterval is one upstream record before timestamp normalization. All
// attributes except the key fields are nullable at the source and carried
// through unchanged.
type RawInterval struct {
	SettlementDate          string   `json:"SETTLEMENTDATE"`
	RegionID                string   `json:"REGIONID"`
	Region                  *string  `json:"REGION"`
	RRP                     *float64 `json:"RRP"`
	TotalDemand             *float64 `json:"TOTALDEMAND"`
	PeriodType              *string  `json:"PERIODTYPE"`
	NetInterchange          *float64 `json:"NETINTERCHANGE"`
	ScheduledGeneration     *float64 `json:"SCHEDULEDGENERATION"`
	SemiScheduledGeneration *float64 `json:"SEMISCHEDULEDGENERATION"`
	APCFlag                 *float64 `json:"APCFLAG"`
}

type fiveMinResponse struct {
	FiveMin []RawInterval `json:"5MIN"`
}

// Client fetches the five-minute price series from the configured upstream.
type Client struct {
	url     string
	headers map[string]string
	http    *xhttp.Client
}

// New creates a new upstream client.
func New(url string, headers map[string]string, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		headers: headers,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// FetchFiveMin requests the 5-minute series. Non-2xx responses and transport
// errors surface as errors; a 2xx body without the expected array is a hard
// failure for the cycle.
func (c *Client) FetchFiveMin(ctx context.Context) ([]RawInterval, error) {
	body := map[string][]string{"timeScale": {"5MIN"}}

	var resp fiveMinResponse
	if err := c.http.PostJSON(ctx, c.url, c.headers, body, &resp); err != nil {
		return nil, fmt.Errorf("fetch 5MIN series: %w", err)
	}

	if resp.FiveMin == nil {
		return nil, ErrMissingSeries
	}
	return resp.FiveMin, nil
}
