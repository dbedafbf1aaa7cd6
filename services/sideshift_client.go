// services/sideshift_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"crypto-gift-system/utils"

	log "github.com/sirupsen/logrus"
)

const maxErrorBodyBytes = 4096

// Coin is one entry of the provider's supported asset list.
type Coin struct {
	Coin           string          `json:"coin"`
	Networks       []string        `json:"networks"`
	Name           string          `json:"name"`
	HasMemo        bool            `json:"hasMemo"`
	FixedOnly      json.RawMessage `json:"fixedOnly,omitempty"`
	VariableOnly   json.RawMessage `json:"variableOnly,omitempty"`
	DepositOffline json.RawMessage `json:"depositOffline,omitempty"`
	SettleOffline  json.RawMessage `json:"settleOffline,omitempty"`
}

// PairInfo is the provider's quote for converting one asset into another.
type PairInfo struct {
	Min            string `json:"min"`
	Max            string `json:"max"`
	Rate           string `json:"rate"`
	DepositCoin    string `json:"depositCoin"`
	SettleCoin     string `json:"settleCoin"`
	DepositNetwork string `json:"depositNetwork"`
	SettleNetwork  string `json:"settleNetwork"`
}

// Shift is a provider swap, as returned on creation and on lookup.
type Shift struct {
	ID             string `json:"id"`
	CreatedAt      string `json:"createdAt,omitempty"`
	DepositCoin    string `json:"depositCoin"`
	SettleCoin     string `json:"settleCoin"`
	DepositNetwork string `json:"depositNetwork"`
	SettleNetwork  string `json:"settleNetwork"`
	DepositAddress string `json:"depositAddress"`
	SettleAddress  string `json:"settleAddress"`
	DepositMin     string `json:"depositMin"`
	DepositMax     string `json:"depositMax"`
	Type           string `json:"type"`
	DepositAmount  string `json:"depositAmount,omitempty"`
	SettleAmount   string `json:"settleAmount,omitempty"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
	Status         string `json:"status"`
	Rate           string `json:"rate,omitempty"`
}

// SwapRequest describes a variable swap: the provider pays out whatever arrives.
type SwapRequest struct {
	DepositCoin    string
	DepositNetwork string
	SettleCoin     string
	SettleNetwork  string
	SettleAddress  string
	RefundAddress  string
}

// SwapProvider is the contract the orchestrator consumes.
type SwapProvider interface {
	ListAssets(ctx context.Context) ([]Coin, error)
	GetRate(ctx context.Context, fromCoin, fromNetwork, toCoin, toNetwork string) (*PairInfo, error)
	OpenSwap(ctx context.Context, req SwapRequest, callerOrigin string) (*Shift, error)
	GetSwapStatus(ctx context.Context, shiftID, callerOrigin string) (*Shift, error)
}

// SideShiftClient talks to the SideShift v2 REST API. It does not retry or cache.
type SideShiftClient struct {
	BaseURL     string
	Secret      string
	AffiliateID string
	Client      *http.Client
}

// NewSideShiftClient builds a client from explicit credentials.
func NewSideShiftClient(baseURL, secret, affiliateID string, client *http.Client) *SideShiftClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &SideShiftClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Secret:      secret,
		AffiliateID: affiliateID,
		Client:      client,
	}
}

// ListAssets returns the supported coin/network combinations.
func (c *SideShiftClient) ListAssets(ctx context.Context) ([]Coin, error) {
	var coins []Coin
	if err := c.do(ctx, http.MethodGet, "/coins", nil, "", &coins); err != nil {
		return nil, newError(CodeProviderUnavailable, err.Error(), err)
	}
	return coins, nil
}

// GetRate looks up the rate and deposit bounds for a pair.
func (c *SideShiftClient) GetRate(ctx context.Context, fromCoin, fromNetwork, toCoin, toNetwork string) (*PairInfo, error) {
	from := url.PathEscape(fromCoin + "-" + fromNetwork)
	to := url.PathEscape(toCoin + "-" + toNetwork)

	var pair PairInfo
	if err := c.do(ctx, http.MethodGet, "/pair/"+from+"/"+to, nil, "", &pair); err != nil {
		return nil, newError(CodePairUnavailable, err.Error(), err)
	}
	return &pair, nil
}

// OpenSwap creates a variable shift paying out to req.SettleAddress.
func (c *SideShiftClient) OpenSwap(ctx context.Context, req SwapRequest, callerOrigin string) (*Shift, error) {
	body := struct {
		DepositCoin    string `json:"depositCoin"`
		DepositNetwork string `json:"depositNetwork"`
		SettleCoin     string `json:"settleCoin"`
		SettleNetwork  string `json:"settleNetwork"`
		SettleAddress  string `json:"settleAddress"`
		RefundAddress  string `json:"refundAddress,omitempty"`
		AffiliateID    string `json:"affiliateId"`
	}{
		DepositCoin:    req.DepositCoin,
		DepositNetwork: req.DepositNetwork,
		SettleCoin:     req.SettleCoin,
		SettleNetwork:  req.SettleNetwork,
		SettleAddress:  req.SettleAddress,
		RefundAddress:  req.RefundAddress,
		AffiliateID:    c.AffiliateID,
	}

	var shift Shift
	if err := c.do(ctx, http.MethodPost, "/shifts/variable", body, callerOrigin, &shift); err != nil {
		return nil, newError(CodeSwapCreationFailed, err.Error(), err)
	}
	return &shift, nil
}

// GetSwapStatus fetches the live state of a shift.
func (c *SideShiftClient) GetSwapStatus(ctx context.Context, shiftID, callerOrigin string) (*Shift, error) {
	if strings.TrimSpace(shiftID) == "" {
		return nil, newError(CodeSwapLookupFailed, "shift id is required", nil)
	}
	var shift Shift
	if err := c.do(ctx, http.MethodGet, "/shifts/"+url.PathEscape(shiftID), nil, callerOrigin, &shift); err != nil {
		return nil, newError(CodeSwapLookupFailed, err.Error(), err)
	}
	return &shift, nil
}

// providerError is a non-2xx reply; Message is whatever the provider said.
type providerError struct {
	StatusCode int
	Message    string
}

func (e *providerError) Error() string { return e.Message }

func (c *SideShiftClient) do(ctx context.Context, method, path string, payload any, callerOrigin string, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-sideshift-secret", c.Secret)
	if origin := utils.PublicOrigin(callerOrigin); origin != "" {
		req.Header.Set("x-user-ip", origin)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		log.WithField("component", "SIDESHIFT").WithError(err).Warnf("%s %s failed", method, path)
		return fmt.Errorf("failed to call SideShift: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		perr := &providerError{StatusCode: resp.StatusCode, Message: providerMessage(raw)}
		log.WithField("component", "SIDESHIFT").Warnf("%s %s returned %d: %s", method, path, resp.StatusCode, perr.Message)
		return perr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode SideShift response: %w", err)
	}
	return nil
}

// providerMessage pulls the human-readable message out of an error body.
func providerMessage(raw []byte) string {
	var payload struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "Unknown error"
	}
	if payload.Error != nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if payload.Message != "" {
		return payload.Message
	}
	return "SideShift API error"
}
