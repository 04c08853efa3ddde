package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paysync-io/paysync/internal/pkg/config"
)

// Cancellation modes accepted by the provider.
const (
	CancelImmediately  = "immediately"
	CancelAtPeriodEnd  = "at_period_end"
	ProrationBehavior  = "prorated_immediately"
	NoProrationUpgrade = "full_immediately"
)

// Client is a thin pass-through to the provider's REST API for the few
// outbound operations the service needs. It owns no business logic.
type Client struct {
	apiKey  string
	baseURL string

	HTTPClient *http.Client
}

// NewClient builds the provider client from config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:  cfg.Provider.APIKey,
		baseURL: strings.TrimRight(cfg.Provider.BaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CheckoutOptions tune a hosted checkout session.
type CheckoutOptions struct {
	// ReferenceID correlates the session with the webhook events it later
	// produces.
	ReferenceID   string `json:"reference_id,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	SuccessURL    string `json:"success_url,omitempty"`
	DiscountCode  string `json:"discount_code,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
}

// SubscriptionItem describes one line of a subscription update.
type SubscriptionItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateCheckout creates a hosted checkout session and returns its URL.
func (c *Client) CreateCheckout(ctx context.Context, productID string, opts CheckoutOptions) (string, error) {
	if strings.TrimSpace(productID) == "" {
		return "", errors.New("product id is required")
	}

	body := struct {
		ProductID string `json:"product_id"`
		CheckoutOptions
	}{ProductID: productID, CheckoutOptions: opts}

	var out struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/checkouts", body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.CheckoutURL) == "" {
		return "", errors.New("provider returned empty checkout_url")
	}
	return out.CheckoutURL, nil
}

// UpdateSubscription changes a subscription's items with the given proration
// behavior.
func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, items []SubscriptionItem, behavior string) error {
	if strings.TrimSpace(subscriptionID) == "" {
		return errors.New("subscription id is required")
	}
	body := struct {
		Items             []SubscriptionItem `json:"items"`
		ProrationBehavior string             `json:"proration_behavior,omitempty"`
	}{Items: items, ProrationBehavior: behavior}
	return c.do(ctx, http.MethodPatch, "/v1/subscriptions/"+subscriptionID, body, nil)
}

// CancelSubscription cancels immediately or at period end.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, mode string) error {
	if strings.TrimSpace(subscriptionID) == "" {
		return errors.New("subscription id is required")
	}
	body := struct {
		Mode string `json:"mode"`
	}{Mode: mode}
	return c.do(ctx, http.MethodPost, "/v1/subscriptions/"+subscriptionID+"/cancel", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return errors.New("provider API key is not configured")
	}
	if strings.TrimSpace(c.baseURL) == "" {
		return errors.New("provider base URL is not configured")
	}

	var reqBody io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider request %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return err
		}
	}
	return nil
}
