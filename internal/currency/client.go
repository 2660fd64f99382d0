package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ratesResponse is the body of an exchangerate-api style "latest" endpoint.
type ratesResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Client fetches COP based conversion rates and keeps them for ttl.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *expirable.LRU[Code, map[string]float64]
}

func NewClient(baseURL string, httpClient *http.Client, ttl time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		cache:      expirable.NewLRU[Code, map[string]float64](1, nil, ttl),
	}
}

// Rate returns how many units of code one COP buys.
func (c *Client) Rate(ctx context.Context, code Code) (float64, error) {
	if code == COP {
		return 1, nil
	}

	rates, err := c.rates(ctx)
	if err != nil {
		return 0, err
	}

	rate, ok := rates[string(code)]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrRateUnavailable, code)
	}
	return rate, nil
}

func (c *Client) rates(ctx context.Context) (map[string]float64, error) {
	if rates, ok := c.cache.Get(COP); ok {
		return rates, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest/"+string(COP), nil)
	if err != nil {
		return nil, fmt.Errorf("create rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get exchange rates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates service returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode exchange rates: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return nil, fmt.Errorf("%w: result %q", ErrRateUnavailable, body.Result)
	}

	c.cache.Add(COP, body.ConversionRates)
	return body.ConversionRates, nil
}
