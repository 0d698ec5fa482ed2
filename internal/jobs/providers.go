package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"finpulse/internal/models"
)

// HTTPNewsProvider fetches articles from the external news API.
type HTTPNewsProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPNewsProvider(baseURL, apiKey string, timeout time.Duration) *HTTPNewsProvider {
	return &HTTPNewsProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (p *HTTPNewsProvider) Fetch(ctx context.Context, symbol, date string) ([]models.Article, error) {
	endpoint := fmt.Sprintf("%s/v1/news?symbol=%s&date=%s", p.baseURL, url.QueryEscape(symbol), url.QueryEscape(date))

	var payload struct {
		Articles []models.Article `json:"articles"`
	}
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if len(payload.Articles) == 0 {
		return nil, ErrNoData
	}
	return payload.Articles, nil
}

func (p *HTTPNewsProvider) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	return getJSON(ctx, p.http, endpoint, p.apiKey, out)
}

// HTTPMarketData fetches quotes from the external market-data API.
type HTTPMarketData struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPMarketData(baseURL, apiKey string, timeout time.Duration) *HTTPMarketData {
	return &HTTPMarketData{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (p *HTTPMarketData) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/quote?symbol=%s", p.baseURL, url.QueryEscape(symbol))

	var quote models.Quote
	if err := getJSON(ctx, p.http, endpoint, p.apiKey, &quote); err != nil {
		return models.Quote{}, err
	}
	if quote.Symbol == "" {
		return models.Quote{}, ErrNoData
	}
	return quote, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint, apiKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
