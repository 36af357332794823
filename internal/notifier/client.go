// Package notifier предоставляет клиент для отправки событий заказов
// внешнему получателю (вебхук).
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/quickmart-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с получателем событий.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// Event описывает отправляемое событие заказа.
type Event struct {
	Type            string `json:"type"`
	OrderID         string `json:"orderId"`
	OrderNumber     string `json:"orderNumber,omitempty"`
	UserID          string `json:"userId,omitempty"`
	PartnerName     string `json:"partnerName,omitempty"`
	EstimatedTime   int    `json:"estimatedTime,omitempty"`
	FinalAmount     int64  `json:"finalAmount,omitempty"`
	DeliveryAddress string `json:"deliveryAddress,omitempty"`
}

// NewClient создаёт клиент для отправки событий по указанному адресу.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
	}
}

// OrderCreated отправляет событие о создании заказа.
func (c *Client) OrderCreated(ctx context.Context, order *model.Order) error {
	return c.send(ctx, Event{
		Type:            "order.created",
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		EstimatedTime:   order.EstimatedMinutes,
		FinalAmount:     order.FinalAmount,
		DeliveryAddress: order.DeliveryAddress,
	})
}

// PartnerAssigned отправляет событие о назначении курьера.
func (c *Client) PartnerAssigned(ctx context.Context, order *model.Order) error {
	return c.send(ctx, Event{
		Type:          "order.partner_assigned",
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		PartnerName:   order.DeliveryPartner,
		EstimatedTime: order.EstimatedMinutes,
	})
}

func (c *Client) send(ctx context.Context, event Event) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("notifier client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
