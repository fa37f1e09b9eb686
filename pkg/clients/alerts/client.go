// Package alerts delivers low-stock notifications to an external webhook.
// Delivery is fire-and-forget: failures are reported to the caller for
// logging but never retried here.
package alerts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Notifier sends stock alert payloads.
type Notifier interface {
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// LowStockAlert is the payload posted to the webhook.
type LowStockAlert struct {
	StoreID    string `json:"store_id"`
	ProductID  string `json:"product_id"`
	Product    string `json:"product"`
	Brand      string `json:"brand"`
	UnusedLots int    `json:"unused_lots"`
	Threshold  int    `json:"threshold"`
}

// WebhookNotifier is a resty-backed implementation of Notifier.
type WebhookNotifier struct {
	httpClient *resty.Client
}

// NewWebhookNotifier builds a notifier posting to the given webhook URL.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(webhookURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &WebhookNotifier{httpClient: restyClient}
}

// NotifyLowStock posts one alert to the webhook.
func (c *WebhookNotifier) NotifyLowStock(ctx context.Context, alert LowStockAlert) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post("")
	if err != nil {
		return fmt.Errorf("post low stock alert: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("alert webhook error: status=%d, body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
