package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paysync-io/paysync/internal/pkg/config"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{}
	cfg.Provider.APIKey = "sk_test_123"
	cfg.Provider.BaseURL = baseURL
	return NewClient(cfg)
}

func TestCreateCheckout(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"checkout_url": "https://pay.example.com/c/abc"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	url, err := c.CreateCheckout(context.Background(), "prod_1", CheckoutOptions{CustomerEmail: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example.com/c/abc", url)
	require.Equal(t, "Bearer sk_test_123", gotAuth)
	require.Equal(t, "/v1/checkouts", gotPath)
	require.Equal(t, "prod_1", gotBody["product_id"])
	require.Equal(t, "a@example.com", gotBody["customer_email"])
}

func TestCreateCheckout_EmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateCheckout(context.Background(), "prod_1", CheckoutOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "checkout_url")
}

func TestCreateCheckout_MissingProduct(t *testing.T) {
	_, err := newTestClient("http://unused").CreateCheckout(context.Background(), " ", CheckoutOptions{})
	require.Error(t, err)
}

func TestCancelSubscription(t *testing.T) {
	var gotMethod, gotPath, gotMode string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		var body struct {
			Mode string `json:"mode"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotMode = body.Mode
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).CancelSubscription(context.Background(), "sub_1", CancelAtPeriodEnd)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/v1/subscriptions/sub_1/cancel", gotPath)
	require.Equal(t, CancelAtPeriodEnd, gotMode)
}

func TestProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).UpdateSubscription(context.Background(), "sub_1", []SubscriptionItem{{ProductID: "prod_2", Quantity: 1}}, ProrationBehavior)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient(&config.Config{})
	_, err := c.CreateCheckout(context.Background(), "prod_1", CheckoutOptions{})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "API key") || strings.Contains(err.Error(), "base URL"))
}
