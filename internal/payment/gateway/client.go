package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"eventhub/internal/models"
)

// Client talks to the payment processor's REST API with basic auth.
type Client struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	HTTP      *http.Client
}

func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

type createOrderPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder opens a processor-side order. Amount is in minor units.
func (c *Client) CreateOrder(amount int64, currency, receipt string) (*models.GatewayOrder, error) {
	body, err := json.Marshal(createOrderPayload{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	var order models.GatewayOrder
	if err := c.do(req, &order); err != nil {
		return nil, fmt.Errorf("gateway create order failed: %w", err)
	}
	return &order, nil
}

// FetchPayment pulls the method details for a captured payment.
func (c *Client) FetchPayment(gatewayPaymentID string) (*models.GatewayPaymentDetails, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+"/v1/payments/"+gatewayPaymentID, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	var details models.GatewayPaymentDetails
	if err := c.do(req, &details); err != nil {
		return nil, fmt.Errorf("gateway fetch payment failed: %w", err)
	}
	return &details, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
