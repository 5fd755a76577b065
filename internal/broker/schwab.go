package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"schwab-trader/internal/errors"
	"schwab-trader/internal/models"
)

// SchwabConfig holds configuration for the Schwab client.
type SchwabConfig struct {
	BaseURL     string
	AccessToken string
	AccountHash string
	StrikeCount int
	HTTPTimeout time.Duration
}

// SchwabClient implements Feed and OrderTransport against the Schwab
// trader and market data REST APIs. Token acquisition and refresh are
// handled outside this client.
type SchwabClient struct {
	cfg    SchwabConfig
	client *http.Client
}

// NewSchwabClient creates a new Schwab API client.
func NewSchwabClient(cfg SchwabConfig) *SchwabClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.schwabapi.com"
	}
	if cfg.StrikeCount == 0 {
		cfg.StrikeCount = 150
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &SchwabClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// chainResponse mirrors the option chain payload.
type chainResponse struct {
	Symbol     string  `json:"symbol"`
	Underlying float64 `json:"underlyingPrice"`
	// Keys look like "2025-09-19:21" (date:days).
	CallExpDateMap map[string]map[string][]chainContract `json:"callExpDateMap"`
	PutExpDateMap  map[string]map[string][]chainContract `json:"putExpDateMap"`
}

type chainContract struct {
	Symbol       string  `json:"symbol"`
	StrikePrice  float64 `json:"strikePrice"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	OpenInterest int64   `json:"openInterest"`
	PutCall      string  `json:"putCall"`
}

// GetSnapshot fetches and normalizes the option chain for a symbol.
func (s *SchwabClient) GetSnapshot(ctx context.Context, underlying string) (*models.Snapshot, error) {
	url := fmt.Sprintf("%s/marketdata/v1/chains?symbol=%s&strikeCount=%d",
		s.cfg.BaseURL, strings.TrimPrefix(underlying, "$"), s.cfg.StrikeCount)

	var resp chainResponse
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return nil, errors.Wrapf(errors.ErrFeedUnavailable, "chain for %s: %v", underlying, err)
	}

	var contracts []models.OptionContract
	contracts = append(contracts, mapExpDateMap(underlying, resp.CallExpDateMap, models.Call)...)
	contracts = append(contracts, mapExpDateMap(underlying, resp.PutExpDateMap, models.Put)...)
	if len(contracts) == 0 {
		return nil, errors.Wrapf(errors.ErrFeedUnavailable, "empty chain for %s", underlying)
	}

	return models.NewSnapshot(underlying, resp.Underlying, time.Now(), contracts), nil
}

func mapExpDateMap(underlying string, m map[string]map[string][]chainContract, right models.OptionRight) []models.OptionContract {
	var out []models.OptionContract
	for key, strikes := range m {
		date := strings.SplitN(key, ":", 2)[0]
		exp, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		for _, list := range strikes {
			for _, c := range list {
				if c.StrikePrice <= 0 {
					continue
				}
				out = append(out, models.OptionContract{
					Symbol:       c.Symbol,
					Underlying:   underlying,
					Expiration:   exp,
					Strike:       c.StrikePrice,
					Right:        right,
					Bid:          c.Bid,
					Ask:          c.Ask,
					Last:         c.Last,
					OpenInterest: c.OpenInterest,
				})
			}
		}
	}
	return out
}

type positionsResponse struct {
	SecuritiesAccount struct {
		Positions []struct {
			LongQuantity  float64 `json:"longQuantity"`
			ShortQuantity float64 `json:"shortQuantity"`
			AveragePrice  float64 `json:"averagePrice"`
			Instrument    struct {
				Symbol           string `json:"symbol"`
				AssetType        string `json:"assetType"`
				UnderlyingSymbol string `json:"underlyingSymbol"`
				PutCall          string `json:"putCall"`
			} `json:"instrument"`
		} `json:"positions"`
	} `json:"securitiesAccount"`
}

// GetPositions fetches the account's positions.
func (s *SchwabClient) GetPositions(ctx context.Context, accountID string) ([]models.Position, error) {
	hash := accountID
	if hash == "" {
		hash = s.cfg.AccountHash
	}
	url := fmt.Sprintf("%s/trader/v1/accounts/%s?fields=positions", s.cfg.BaseURL, hash)

	var resp positionsResponse
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return nil, errors.Wrapf(errors.ErrFeedUnavailable, "positions: %v", err)
	}

	var out []models.Position
	for _, p := range resp.SecuritiesAccount.Positions {
		qty := int(p.LongQuantity - p.ShortQuantity)
		pos := models.Position{
			Quantity:  qty,
			CostBasis: p.AveragePrice,
		}
		if p.Instrument.AssetType == "OPTION" {
			pos.OptionSymbol = p.Instrument.Symbol
			pos.Underlying = p.Instrument.UnderlyingSymbol
			if p.Instrument.PutCall == "PUT" {
				pos.Right = models.Put
			} else {
				pos.Right = models.Call
			}
			if strike, exp, ok := parseOptionSymbol(p.Instrument.Symbol); ok {
				pos.Strike = strike
				pos.Expiration = exp
			}
		} else {
			pos.Underlying = p.Instrument.Symbol
		}
		out = append(out, pos)
	}
	return out, nil
}

// parseOptionSymbol extracts expiration and strike from an OCC-style
// symbol such as "SPXW  250919C05100000".
func parseOptionSymbol(symbol string) (strike float64, exp time.Time, ok bool) {
	fields := strings.Fields(symbol)
	if len(fields) < 2 {
		return 0, time.Time{}, false
	}
	tail := fields[len(fields)-1]
	if len(tail) < 15 {
		return 0, time.Time{}, false
	}
	exp, err := time.Parse("060102", tail[:6])
	if err != nil {
		return 0, time.Time{}, false
	}
	raw, err := strconv.ParseInt(tail[7:], 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	return float64(raw) / 1000.0, exp, true
}

type marketHoursResponse struct {
	Equity map[string]struct {
		IsOpen bool `json:"isOpen"`
	} `json:"equity"`
}

// IsMarketOpen reports whether the equity market is open. The debug
// override forces true; a feed failure reports closed.
func (s *SchwabClient) IsMarketOpen(ctx context.Context, debugOverride bool) bool {
	if debugOverride {
		return true
	}
	url := fmt.Sprintf("%s/marketdata/v1/markets/equity", s.cfg.BaseURL)
	var resp marketHoursResponse
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return false
	}
	for _, m := range resp.Equity {
		if m.IsOpen {
			return true
		}
	}
	return false
}

// orderPayload is the Schwab order JSON.
type orderPayload struct {
	OrderType          string       `json:"orderType"`
	Session            string       `json:"session"`
	Price              string       `json:"price"`
	Duration           string       `json:"duration"`
	OrderStrategyType  string       `json:"orderStrategyType"`
	ComplexStrategy    string       `json:"complexOrderStrategyType,omitempty"`
	OrderLegCollection []legPayload `json:"orderLegCollection"`
}

type legPayload struct {
	Instruction string `json:"instruction"`
	Quantity    int    `json:"quantity"`
	Instrument  struct {
		Symbol    string `json:"symbol"`
		AssetType string `json:"assetType"`
	} `json:"instrument"`
}

func buildOrderPayload(order *models.Order) orderPayload {
	p := orderPayload{
		Session:           "NORMAL",
		Duration:          "DAY",
		OrderStrategyType: "SINGLE",
		Price:             fmt.Sprintf("%.2f", math.Abs(order.LimitPrice)),
		ComplexStrategy:   complexStrategyType(order),
	}
	if order.IsCredit() {
		p.OrderType = "NET_CREDIT"
	} else {
		p.OrderType = "NET_DEBIT"
	}
	for _, leg := range order.Legs {
		lp := legPayload{Instruction: string(leg.Instruction), Quantity: leg.Quantity}
		lp.Instrument.Symbol = leg.Symbol
		lp.Instrument.AssetType = "OPTION"
		p.OrderLegCollection = append(p.OrderLegCollection, lp)
	}
	return p
}

func complexStrategyType(order *models.Order) string {
	switch order.Strategy {
	case models.StrategyRoll:
		return "DIAGONAL"
	case models.StrategyVertical:
		return "VERTICAL"
	case models.StrategyBoxSpread, models.StrategySyntheticCC:
		return "CUSTOM"
	default:
		return ""
	}
}

// Submit places the order and returns the brokerage order id.
func (s *SchwabClient) Submit(ctx context.Context, order *models.Order) (string, error) {
	url := fmt.Sprintf("%s/trader/v1/accounts/%s/orders", s.cfg.BaseURL, s.cfg.AccountHash)

	body, err := json.Marshal(buildOrderPayload(order))
	if err != nil {
		return "", errors.Wrap(err, "marshaling order")
	}

	resp, err := s.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", errors.Wrapf(errors.ErrSubmissionRejected, "status %d: %s", resp.StatusCode, string(msg))
	}
	if resp.StatusCode >= 500 {
		return "", errors.NewBrokerError("NETWORK", fmt.Sprintf("submit returned %d", resp.StatusCode), nil)
	}

	// The order id comes back in the Location header.
	location := resp.Header.Get("Location")
	if idx := strings.LastIndex(location, "/"); idx >= 0 && idx < len(location)-1 {
		return location[idx+1:], nil
	}
	return "", errors.NewBrokerError("PROTOCOL", "no order id in response", nil)
}

type orderStatusResponse struct {
	Status             string  `json:"status"`
	Price              float64 `json:"price"`
	FilledQuantity     float64 `json:"filledQuantity"`
	StatusDescription  string  `json:"statusDescription"`
	OrderActivity      []struct {
		ExecutionLegs []struct {
			LegID    int     `json:"legId"`
			Quantity float64 `json:"quantity"`
		} `json:"executionLegs"`
	} `json:"orderActivityCollection"`
	OrderLegCollection []struct {
		LegID      int `json:"legId"`
		Quantity   int `json:"quantity"`
		Instrument struct {
			Symbol string `json:"symbol"`
		} `json:"instrument"`
	} `json:"orderLegCollection"`
}

// PollStatus fetches the working order's state and per-leg fills.
func (s *SchwabClient) PollStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	url := fmt.Sprintf("%s/trader/v1/accounts/%s/orders/%s", s.cfg.BaseURL, s.cfg.AccountHash, orderID)

	var resp orderStatusResponse
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return OrderStatus{}, err
	}

	filledByLeg := make(map[int]int)
	for _, act := range resp.OrderActivity {
		for _, leg := range act.ExecutionLegs {
			filledByLeg[leg.LegID] += int(leg.Quantity)
		}
	}

	status := OrderStatus{
		State:  mapOrderStatus(resp.Status, resp.FilledQuantity),
		Price:  resp.Price,
		Reason: resp.StatusDescription,
	}
	for _, leg := range resp.OrderLegCollection {
		status.LegFills = append(status.LegFills, LegFill{
			Symbol:    leg.Instrument.Symbol,
			FilledQty: filledByLeg[leg.LegID],
		})
	}
	return status, nil
}

func mapOrderStatus(status string, filled float64) models.OrderState {
	switch status {
	case "FILLED":
		return models.OrderFilled
	case "CANCELED":
		return models.OrderCancelled
	case "REJECTED":
		return models.OrderRejected
	case "EXPIRED":
		return models.OrderExpired
	default:
		if filled > 0 {
			return models.OrderPartiallyFilled
		}
		return models.OrderSubmitted
	}
}

// Cancel requests cancellation of a working order.
func (s *SchwabClient) Cancel(ctx context.Context, orderID string) error {
	url := fmt.Sprintf("%s/trader/v1/accounts/%s/orders/%s", s.cfg.BaseURL, s.cfg.AccountHash, orderID)

	resp, err := s.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return errors.ErrAlreadyTerminal
	case resp.StatusCode >= 400:
		return errors.NewBrokerError("NETWORK", fmt.Sprintf("cancel returned %d", resp.StatusCode), nil)
	}
	return nil
}

// Replace performs a cancel-replace at a new limit price. Schwab issues
// a fresh order id for the replacement.
func (s *SchwabClient) Replace(ctx context.Context, orderID string, newLimit float64) (string, error) {
	current, err := s.PollStatus(ctx, orderID)
	if err != nil {
		return "", err
	}
	if current.State.IsTerminal() {
		return "", errors.ErrAlreadyTerminal
	}

	url := fmt.Sprintf("%s/trader/v1/accounts/%s/orders/%s", s.cfg.BaseURL, s.cfg.AccountHash, orderID)

	payload := map[string]interface{}{
		"price": fmt.Sprintf("%.2f", math.Abs(newLimit)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshaling replace")
	}

	resp, err := s.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", errors.ErrAlreadyTerminal
	}
	if resp.StatusCode >= 400 {
		return "", errors.NewBrokerError("NETWORK", fmt.Sprintf("replace returned %d", resp.StatusCode), nil)
	}

	location := resp.Header.Get("Location")
	if idx := strings.LastIndex(location, "/"); idx >= 0 && idx < len(location)-1 {
		return location[idx+1:], nil
	}
	return orderID, nil
}

func (s *SchwabClient) getJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := s.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.ErrOrderNotFound
	}
	if resp.StatusCode >= 400 {
		return errors.NewBrokerError("NETWORK", fmt.Sprintf("GET %s returned %d", url, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewBrokerError("NETWORK", "reading response", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.NewBrokerError("PROTOCOL", "parsing response", err)
	}
	return nil
}

func (s *SchwabClient) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewBrokerError("TIMEOUT", "request cancelled or timed out", err)
		}
		return nil, errors.NewBrokerError("NETWORK", "request failed", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, errors.NewBrokerError("RATE_LIMIT", "rate limited", nil)
	}
	return resp, nil
}
