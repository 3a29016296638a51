// Package payment is the client for the external payment processor. The
// order workflow does not gate on it; it backs the standalone intent and
// status endpoints.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopstack/ecommerce-api/internal/apperr"
)

// Supported payment methods.
const (
	MethodCard      = "card"
	MethodPromptPay = "promptpay"
)

// IntentRequest describes a payment to authorize.
type IntentRequest struct {
	Amount       float64
	Currency     string
	Method       string
	BillingName  string
	BillingEmail string
}

// Intent is the client-facing handle returned by the processor. QRCodeURL
// is set for PromptPay intents only.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	QRCodeURL    string `json:"qr_url,omitempty"`
}

// Gateway calls the payment processor's HTTP API.
type Gateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewGateway(baseURL, secretKey string) *Gateway {
	return &Gateway{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type intentPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"payment_method"`
	Billing  struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email,omitempty"`
	} `json:"billing"`
}

// CreateIntent registers a payment intent with the processor. Amounts are
// sent in the currency's smallest unit.
func (g *Gateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Method != MethodCard && req.Method != MethodPromptPay {
		return nil, apperr.InvalidInput("unsupported payment method: %s", req.Method)
	}
	if req.Amount <= 0 {
		return nil, apperr.InvalidInput("amount must be positive")
	}

	payload := intentPayload{
		Amount:   int64(math.Round(req.Amount * 100)),
		Currency: req.Currency,
		Method:   req.Method,
	}
	payload.Billing.Name = req.BillingName
	payload.Billing.Email = req.BillingEmail

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Internal("failed to encode intent request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("failed to build intent request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Internal("payment processor unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apperr.Internal(fmt.Sprintf("payment processor returned %d", resp.StatusCode), nil)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, apperr.Internal("failed to decode intent response", err)
	}

	if req.Method == MethodPromptPay && intent.QRCodeURL == "" {
		return nil, apperr.Internal("QR URL missing from promptpay intent", nil)
	}

	return &intent, nil
}

// GetStatus returns the processor's current status string for an intent.
func (g *Gateway) GetStatus(ctx context.Context, intentID string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payment_intents/"+intentID, nil)
	if err != nil {
		return "", apperr.Internal("failed to build status request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", apperr.Internal("payment processor unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", apperr.NotFound("payment intent %s not found", intentID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperr.Internal(fmt.Sprintf("payment processor returned %d", resp.StatusCode), nil)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Internal("failed to decode status response", err)
	}
	return out.Status, nil
}
