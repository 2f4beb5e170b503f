package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

const (
	DefaultBaseURL  = "https://api.telegram.org"
	maxCaptionRunes = 1024
	chartFileName   = "chart.png"
)

// Config holds the Bot API settings.
type Config struct {
	BaseURL string
	Token   string
	ChatID  string
	Timeout time.Duration
	Logger  ports.Logger
}

// Client sends alerts through the Telegram Bot API. It implements ports.Notifier.
type Client struct {
	http   *resty.Client
	token  string
	chatID string
	logger ports.Logger
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// New creates a Telegram client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram client")
	}
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram token and chat id are required: %w", ports.ErrConfigurationError)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "itm-screener")

	return &Client{
		http:   httpClient,
		token:  cfg.Token,
		chatID: cfg.ChatID,
		logger: cfg.Logger,
	}, nil
}

// Name identifies the transport.
func (c *Client) Name() string {
	return "telegram"
}

// SendText posts the alert text with sendMessage.
func (c *Client) SendText(ctx context.Context, alert *domain.Alert) error {
	op := "telegram sendMessage"
	var result apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": c.chatID,
			"text":    alert.Text(),
		}).
		SetResult(&result).
		SetError(&result).
		Post(c.methodPath("sendMessage"))
	if err != nil {
		return c.mapError(ctx, op, err)
	}
	return c.checkResponse(ctx, op, resp, result)
}

// SendImage posts the chart with the alert text as caption using sendPhoto.
func (c *Client) SendImage(ctx context.Context, alert *domain.Alert, image []byte) error {
	op := "telegram sendPhoto"
	var result apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": c.chatID,
			"caption": truncateRunes(alert.Text(), maxCaptionRunes),
		}).
		SetFileReader("photo", chartFileName, bytes.NewReader(image)).
		SetResult(&result).
		SetError(&result).
		Post(c.methodPath("sendPhoto"))
	if err != nil {
		return c.mapError(ctx, op, err)
	}
	return c.checkResponse(ctx, op, resp, result)
}

func (c *Client) methodPath(method string) string {
	return "/bot" + c.token + "/" + method
}

func (c *Client) checkResponse(ctx context.Context, op string, resp *resty.Response, result apiResponse) error {
	if !resp.IsError() && result.OK {
		c.logger.Debug(ctx, "Telegram message delivered", map[string]interface{}{"operation": op})
		return nil
	}

	status := resp.StatusCode()
	var mapped error
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		// Telegram answers 404 for an unknown bot token.
		mapped = ports.ErrAuthenticationFailed
	case status == http.StatusTooManyRequests:
		mapped = ports.ErrRateLimited
	case status == http.StatusBadRequest:
		mapped = ports.ErrInvalidRequest
	default:
		mapped = ports.ErrProviderUnavailable
	}

	desc := result.Description
	if desc == "" {
		desc = http.StatusText(status)
	}
	err := fmt.Errorf("%s failed: %w: %w: status %d: %s", op, ports.ErrTransportFailure, mapped, status, desc)
	c.logger.Error(ctx, err, "Telegram API rejected the request", map[string]interface{}{
		"operation": op, "status": status,
	})
	return err
}

func (c *Client) mapError(ctx context.Context, op string, err error) error {
	var mapped error
	switch {
	case errors.Is(err, context.Canceled):
		mapped = ports.ErrContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		mapped = ports.ErrTimeout
	default:
		mapped = ports.ErrConnectionFailed
	}
	final := fmt.Errorf("%s failed: %w: %w: %w", op, ports.ErrTransportFailure, mapped, err)
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", op))
	return final
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
