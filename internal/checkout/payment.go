package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SessionLineItem is what the payment collaborator needs to render a line on
// its hosted page. Card data never passes through this service.
type SessionLineItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitAmount  int64  `json:"unit_amount"`
	Quantity    int    `json:"quantity"`
}

type SessionRequest struct {
	CustomerEmail string            `json:"customer_email,omitempty"`
	LineItems     []SessionLineItem `json:"line_items"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
}

// PaymentSession is the provider's response: an opaque id and the URL the
// user is redirected to.
type PaymentSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PaymentClient interface {
	CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)
}

// HostedPaymentClient talks to the hosted-checkout provider's REST API.
type HostedPaymentClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHostedPaymentClient(baseURL, apiKey string, client *http.Client) *HostedPaymentClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HostedPaymentClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

func (c *HostedPaymentClient) CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call payment provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment provider returned status %d: %s", resp.StatusCode, body)
	}

	var session PaymentSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("payment provider returned incomplete session")
	}

	return &session, nil
}
