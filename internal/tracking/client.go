package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client queries the tracking service over HTTP. The notification dispatcher
// uses it to check that a delivery record has been reconciled before sending
// the confirmation email.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type deliveryStatusResponse struct {
	Success  bool `json:"success"`
	Delivery struct {
		DeliveryID string `json:"deliveryId"`
		Status     string `json:"status"`
	} `json:"delivery"`
}

// GetDeliveryStatus returns the reconciled status for a delivery, or an error
// when the record does not exist yet or the service is unreachable.
func (c *Client) GetDeliveryStatus(ctx context.Context, deliveryID string) (string, error) {
	url := fmt.Sprintf("%s/tracking/%s", c.baseURL, deliveryID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building tracking request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying tracking service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("delivery %s not yet tracked", deliveryID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tracking service returned %d", resp.StatusCode)
	}

	var body deliveryStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding tracking response: %w", err)
	}
	if !body.Success {
		return "", fmt.Errorf("tracking lookup failed for %s", deliveryID)
	}

	return body.Delivery.Status, nil
}
