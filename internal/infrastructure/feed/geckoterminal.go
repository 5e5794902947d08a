package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.geckoterminal.com/api/v2"

// GeckoTerminal fetches spot prices for a batch of token addresses on a
// single network in one request.
type GeckoTerminal struct {
	baseURL string
	network string
	client  *http.Client
	logger  *zap.Logger
}

func NewGeckoTerminal(baseURL, network string, logger *zap.Logger) *GeckoTerminal {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeckoTerminal{
		baseURL: strings.TrimRight(baseURL, "/"),
		network: network,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// TokenPrices returns prices keyed by lowercase token address. Tokens the
// feed does not know are simply absent from the result.
func (g *GeckoTerminal) TokenPrices(ctx context.Context, addresses []string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/simple/networks/%s/token_price/%s",
		g.baseURL, g.network, strings.Join(addresses, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("price feed returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Attributes struct {
				TokenPrices map[string]string `json:"token_prices"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode price feed response: %w", err)
	}

	prices := make(map[string]float64, len(payload.Data.Attributes.TokenPrices))
	for addr, raw := range payload.Data.Attributes.TokenPrices {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			g.logger.Warn("unparseable price from feed",
				zap.String("address", addr), zap.String("value", raw))
			continue
		}
		prices[strings.ToLower(addr)] = p
	}
	return prices, nil
}
