package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/shared/types"
)

// History limits imposed by the device-management backend
const (
	MaxHistoryMessages = 50
	MaxHistoryChars    = 50000
)

// Errors the session manager translates into user-visible notices
var (
	ErrTimeout     = errors.New("advisor backend timed out")
	ErrUnavailable = errors.New("advisor backend unavailable")
	ErrEmptyReply  = errors.New("advisor backend returned an empty reply")
)

// Querier is the capability the session manager consumes
type Querier interface {
	SendQuery(ctx context.Context, text string, history []types.Message) (string, error)
}

// Client queries the device-management backend over local HTTP
type Client struct {
	resty   *resty.Client
	breaker *Breaker
	log     *logging.Logger
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, timeout time.Duration, log *logging.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New()
	restyClient.
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("User-Agent", "droidsweep-backend/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Client{
		resty:   restyClient,
		breaker: NewBreaker(3, 15*time.Second),
		log:     log.Named("advisor"),
	}
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type queryRequest struct {
	Message string           `json:"message"`
	History []historyMessage `json:"history"`
}

type queryResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// SendQuery sends text and the prior transcript, returning the full reply
func (c *Client) SendQuery(ctx context.Context, text string, history []types.Message) (string, error) {
	if !c.breaker.Allow() {
		c.log.Warn("advisor circuit open, failing fast")
		return "", fmt.Errorf("%w: circuit open", ErrUnavailable)
	}

	reply, err := c.send(ctx, text, history)
	// an empty reply means the link itself is healthy
	c.breaker.Record(err == nil || errors.Is(err, ErrEmptyReply))
	return reply, err
}

func (c *Client) send(ctx context.Context, text string, history []types.Message) (string, error) {
	req := queryRequest{
		Message: text,
		History: cleanHistory(history),
	}

	// the backend is local and sometimes sloppy about Content-Type;
	// force JSON decoding so a missing header cannot masquerade as an
	// empty reply
	var out queryResponse
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/chat")

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		c.log.Warn("advisor request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.IsError() {
		c.log.Warn("advisor returned error status",
			zap.Int("status", resp.StatusCode()),
			zap.String("error", out.Error),
		)
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}

	if strings.TrimSpace(out.Response) == "" {
		return "", ErrEmptyReply
	}

	return out.Response, nil
}

// cleanHistory converts the transcript to the backend's wire contract:
// user/assistant roles only, strict alternation starting with a user
// message, bounded count and total size. Mid-stream messages never reach
// here; the session manager only submits at rest.
func cleanHistory(history []types.Message) []historyMessage {
	cleaned := make([]historyMessage, 0, len(history))
	var lastRole types.Role

	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" || !msg.Role.Valid() {
			continue
		}
		if msg.Role == lastRole {
			continue
		}
		if len(cleaned) == 0 && msg.Role != types.RoleUser {
			continue
		}
		cleaned = append(cleaned, historyMessage{
			Role:    string(msg.Role),
			Content: content,
		})
		lastRole = msg.Role
	}

	// Trim oldest first until within bounds, preserving alternation by
	// removing user/assistant pairs.
	for len(cleaned) > MaxHistoryMessages || totalChars(cleaned) > MaxHistoryChars {
		if len(cleaned) <= 2 {
			break
		}
		cleaned = cleaned[2:]
	}

	return cleaned
}

func totalChars(history []historyMessage) int {
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	return total
}
