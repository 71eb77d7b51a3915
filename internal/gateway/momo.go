package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the narrow contract the billing core depends on. The
// reconciler never talks to a provider directly.
type Client interface {
	// RequestToPay asks the provider to collect amount from payerPhone.
	// The externalRef identifies the request; the eventual result
	// arrives on the payment webhook keyed by that reference.
	RequestToPay(ctx context.Context, amount int64, currency, payerPhone, externalRef string) error
	// RequestReversal asks the provider to reverse a collected payment.
	// Confirmation arrives on the refund webhook keyed by refundRef.
	RequestReversal(ctx context.Context, amount int64, currency, originalRef, refundRef string) error
}

// MoMoClient calls the MTN MoMo collections API
type MoMoClient struct {
	baseURL         string
	subscriptionKey string
	targetEnv       string
	callbackURL     string
	refundCallback  string
	httpClient      *http.Client
}

// MoMoConfig holds settings for the MoMo client
type MoMoConfig struct {
	BaseURL           string
	SubscriptionKey   string
	TargetEnvironment string
	CallbackURL       string
	RefundCallbackURL string
	Timeout           time.Duration
}

// NewMoMoClient creates a MoMo client with a bounded request timeout
func NewMoMoClient(cfg MoMoConfig) *MoMoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &MoMoClient{
		baseURL:         cfg.BaseURL,
		subscriptionKey: cfg.SubscriptionKey,
		targetEnv:       cfg.TargetEnvironment,
		callbackURL:     cfg.CallbackURL,
		refundCallback:  cfg.RefundCallbackURL,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

type requestToPayBody struct {
	Amount       string       `json:"amount"`
	Currency     string       `json:"currency"`
	ExternalID   string       `json:"externalId"`
	Payer        partyDetails `json:"payer"`
	PayerMessage string       `json:"payerMessage"`
	PayeeNote    string       `json:"payeeNote"`
}

type partyDetails struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type reversalBody struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	ReferenceID string `json:"referenceId"`
	Reason      string `json:"reason"`
}

func (c *MoMoClient) RequestToPay(ctx context.Context, amount int64, currency, payerPhone, externalRef string) error {
	body := requestToPayBody{
		Amount:     fmt.Sprintf("%d", amount),
		Currency:   currency,
		ExternalID: externalRef,
		Payer: partyDetails{
			PartyIDType: "MSISDN",
			PartyID:     payerPhone,
		},
		PayerMessage: "Rent Payment",
		PayeeNote:    "Rent Payment",
	}

	headers := map[string]string{
		"X-Reference-Id": externalRef,
		"X-Callback-Url": c.callbackURL,
	}

	return c.post(ctx, "/collection/v1_0/requesttopay", body, headers)
}

func (c *MoMoClient) RequestReversal(ctx context.Context, amount int64, currency, originalRef, refundRef string) error {
	body := reversalBody{
		Amount:      fmt.Sprintf("%d", amount),
		Currency:    currency,
		ReferenceID: originalRef,
		Reason:      "Customer refund",
	}

	headers := map[string]string{
		"X-Reference-Id": refundRef,
		"X-Callback-Url": c.refundCallback,
	}

	return c.post(ctx, "/collection/v1_0/reversals", body, headers)
}

func (c *MoMoClient) post(ctx context.Context, path string, body interface{}, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("X-Target-Environment", c.targetEnv)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(snippet))
	}

	return nil
}
