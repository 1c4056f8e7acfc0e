package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rcolon/faretrack/internal/dedup"
	"github.com/rcolon/faretrack/internal/models"
)

// AmadeusClient is a minimal flight-offers REST client with OAuth2
// client-credentials token caching.
type AmadeusClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewAmadeusClient(clientID, clientSecret, env string, timeout time.Duration) (*AmadeusClient, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("amadeus: missing client credentials")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	baseURL := "https://test.api.amadeus.com"
	if strings.ToLower(strings.TrimSpace(env)) == "production" {
		baseURL = "https://api.amadeus.com"
	}

	return &AmadeusClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (c *AmadeusClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Refresh 60 seconds early.
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-60*time.Second)) {
		return c.accessToken, nil
	}
	if err := c.fetchTokenLocked(ctx); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

func (c *AmadeusClient) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

func (c *AmadeusClient) fetchTokenLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("amadeus: token request failed: %d %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	if payload.AccessToken == "" {
		return fmt.Errorf("amadeus: token response without access_token")
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 1800
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return nil
}

// Get performs an authenticated GET. On a 401 the token is refreshed
// and the request retried exactly once.
func (c *AmadeusClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, status, err := c.doGet(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.invalidateToken()
		body, status, err = c.doGet(ctx, path, query)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("amadeus: %s: status %d: %s", path, status, truncate(string(body), 256))
	}
	return body, nil
}

func (c *AmadeusClient) doGet(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// AmadeusProvider is the live upstream-backed variant.
type AmadeusProvider struct {
	client     *AmadeusClient
	maxResults int
}

func NewAmadeusProvider(client *AmadeusClient, maxResults int) *AmadeusProvider {
	if maxResults <= 0 {
		maxResults = 25
	}
	return &AmadeusProvider{client: client, maxResults: maxResults}
}

func (p *AmadeusProvider) Name() string {
	return "amadeus"
}

// Search runs one upstream query, or one per day offset in [-3, +3]
// when flexible dates were requested, deduplicating the concatenation.
func (p *AmadeusProvider) Search(ctx context.Context, params models.SearchParams) ([]*models.Offer, error) {
	if !params.FlexibleDates {
		return p.searchOne(ctx, params)
	}

	tripLen := -1
	if params.TripStructure == models.TripRoundtrip && params.ReturnDate != nil {
		tripLen = int(params.ReturnDate.Sub(params.DepartureDate).Hours() / 24)
	}

	var results []*models.Offer
	for delta := -3; delta <= 3; delta++ {
		dep := params.DepartureDate.AddDate(0, 0, delta)
		var ret *time.Time
		if tripLen >= 0 {
			r := dep.AddDate(0, 0, tripLen)
			ret = &r
		}

		shifted := params
		shifted.DepartureDate = dep
		shifted.ReturnDate = ret
		shifted.FlexibleDates = false

		offers, err := p.searchOne(ctx, shifted)
		if err != nil {
			return nil, err
		}
		results = append(results, offers...)
	}

	return dedup.Dedup(results), nil
}

type flightOffersResponse struct {
	Data         []json.RawMessage `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

func (p *AmadeusProvider) searchOne(ctx context.Context, params models.SearchParams) ([]*models.Offer, error) {
	q := url.Values{}
	q.Set("originLocationCode", params.Origin)
	q.Set("destinationLocationCode", params.Destination)
	q.Set("departureDate", params.DepartureDate.Format("2006-01-02"))
	q.Set("adults", strconv.Itoa(maxInt(1, params.Passengers)))
	q.Set("max", strconv.Itoa(p.maxResults))

	if params.TripStructure == models.TripRoundtrip && params.ReturnDate != nil {
		q.Set("returnDate", params.ReturnDate.Format("2006-01-02"))
	}

	maxStops := params.MaxStopsLimit()
	if maxStops == 0 {
		q.Set("nonStop", "true")
	}

	body, err := p.client.Get(ctx, "/v2/shopping/flight-offers", q)
	if err != nil {
		return nil, NewProviderError(p.Name(), err)
	}

	var payload flightOffersResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewProviderError(p.Name(), err)
	}

	offers := make([]*models.Offer, 0, len(payload.Data))
	for _, rawJSON := range payload.Data {
		var raw rawFlightOffer
		if err := json.Unmarshal(rawJSON, &raw); err != nil {
			continue
		}
		offers = append(offers, normalizeOffer(raw, rawJSON, payload.Dictionaries.Carriers, p.Name(), params))
	}

	// The upstream only exposes a nonstop switch; 1 and 2+ stop limits
	// are enforced here.
	if maxStops >= 1 {
		filtered := offers[:0]
		for _, o := range offers {
			if o.StopsOut <= maxStops && o.StopsReturn <= maxStops {
				filtered = append(filtered, o)
			}
		}
		offers = filtered
	}

	return offers, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
