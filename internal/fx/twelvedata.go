package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const twelveDataBaseURL = "https://api.twelvedata.com"

// TwelveDataClient implements SeriesProvider against the Twelve Data
// time_series endpoint.
type TwelveDataClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewTwelveDataClient(apiKey string, timeout time.Duration) (*TwelveDataClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("fx: missing Twelve Data API key")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &TwelveDataClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: twelveDataBaseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type twelveDataResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
	} `json:"values"`
}

func (c *TwelveDataClient) DailySeries(ctx context.Context, symbol, startDay, endDay string) ([]Point, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1day")
	// Daily interval wants plain YYYY-MM-DD, no time component.
	q.Set("start_date", startDay)
	q.Set("end_date", endDay)
	q.Set("apikey", c.apiKey)
	q.Set("timezone", "UTC")
	q.Set("format", "JSON")
	q.Set("outputsize", "5000")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/time_series?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fx: twelvedata %s: status %d", symbol, resp.StatusCode)
	}

	var payload twelveDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if strings.EqualFold(payload.Status, "error") {
		return nil, fmt.Errorf("fx: twelvedata %s: %s", symbol, payload.Message)
	}

	points := make([]Point, 0, len(payload.Values))
	for _, v := range payload.Values {
		if v.Datetime == "" || v.Close == "" {
			continue
		}
		close, err := strconv.ParseFloat(v.Close, 64)
		if err != nil {
			continue
		}
		// Daily values come back as YYYY-MM-DD; guard against a
		// time component anyway.
		day := v.Datetime
		if len(day) > 10 {
			day = day[:10]
		}
		points = append(points, Point{Day: day, Close: close})
	}
	return points, nil
}
