// Package notify предоставляет клиент внешнего шлюза уведомлений гостей.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие со шлюзом уведомлений.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Reminder описывает напоминание гостю об оплате перед заездом.
type Reminder struct {
	BookingID string  `json:"bookingId"`
	GuestName string  `json:"guestName"`
	Phone     string  `json:"phone"`
	CheckIn   string  `json:"checkIn"`
	Balance   float64 `json:"balance"`
}

// NewClient создаёт HTTP-клиент для обращения к шлюзу уведомлений по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendReminder отправляет напоминание об оплате. Попытка одна:
// политика повторов остаётся за вызывающей стороной. Возвращает
// HTTP-статус и задержку из Retry-After при ответе 429.
func (c *Client) SendReminder(ctx context.Context, reminder Reminder) (int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return 0, 0, fmt.Errorf("notify client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(reminder)
	if err != nil {
		return 0, 0, fmt.Errorf("marshal reminder: %w", err)
	}

	url := base + "/api/notifications"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
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
