// Package mailer предоставляет клиент внешнего почтового сервиса для писем о заказах.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderShipped      = "order_shipped"
	TemplateOrderCancelled    = "order_cancelled"
)

// Client инкапсулирует HTTP-взаимодействие с почтовым сервисом.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	maxRetryAfter time.Duration
}

// Message описывает запрос на отправку письма.
type Message struct {
	Template string              `json:"template"`
	To       string              `json:"to"`
	Name     string              `json:"name"`
	Order    model.Order         `json:"order"`
	Tracking *model.TrackingInfo `json:"tracking,omitempty"`
}

// NewClient создаёт HTTP-клиент почтового сервиса по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		maxRetryAfter: 5 * time.Second,
	}
}

// SendOrderConfirmation отправляет подтверждение оформления заказа.
func (c *Client) SendOrderConfirmation(ctx context.Context, user model.User, order model.Order) error {
	return c.Send(ctx, Message{Template: TemplateOrderConfirmation, To: user.Email, Name: user.Login, Order: order})
}

// SendOrderShipped отправляет уведомление об отгрузке с данными отслеживания.
func (c *Client) SendOrderShipped(ctx context.Context, user model.User, order model.Order, tracking *model.TrackingInfo) error {
	return c.Send(ctx, Message{Template: TemplateOrderShipped, To: user.Email, Name: user.Login, Order: order, Tracking: tracking})
}

// SendOrderCancelled отправляет уведомление об отмене заказа.
func (c *Client) SendOrderCancelled(ctx context.Context, user model.User, order model.Order) error {
	return c.Send(ctx, Message{Template: TemplateOrderCancelled, To: user.Email, Name: user.Login, Order: order})
}

// Send отправляет письмо. При ответе 429 выполняется одна повторная попытка,
// если Retry-After не превышает допустимого ожидания.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient email is empty")
	}

	status, retryAfter, err := c.post(ctx, msg)
	if err != nil {
		return err
	}
	if status != http.StatusTooManyRequests {
		return nil
	}

	if retryAfter > c.maxRetryAfter {
		return fmt.Errorf("mail service throttled, retry after %v", retryAfter)
	}
	timer := time.NewTimer(retryAfter)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}

	status, _, err = c.post(ctx, msg)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("mail service throttled")
	}
	return nil
}

func (c *Client) post(ctx context.Context, msg Message) (int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return 0, 0, fmt.Errorf("mail client not configured")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return resp.StatusCode, 0, nil
}
