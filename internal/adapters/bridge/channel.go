// Package bridge implements the command channel client against a host bridge
// server. It maps the bridge's HTTP statuses back onto the protocol's
// sentinel errors so the loop never sees transport details.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the loopback bridge address.
const DefaultBaseURL = "http://127.0.0.1:8081"

// Channel implements ports.CommandChannel over the bridge HTTP API.
type Channel struct {
	client *resty.Client

	// busy mirrors the server-side gate so a misused concurrent client fails
	// fast without a round trip.
	busy atomic.Bool
}

// Option configures the channel.
type Option func(*Channel)

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Channel) {
		if timeout > 0 {
			c.client.SetTimeout(timeout)
		}
	}
}

// WithHTTPClient replaces the underlying resty client, for tests.
func WithHTTPClient(client *resty.Client) Option {
	return func(c *Channel) {
		c.client = client
	}
}

// New creates a bridge channel client.
func New(baseURL string, opts ...Option) *Channel {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(35 * time.Second) // Slightly above the bridge's own execute ceiling

	c := &Channel{client: client}
	for _, opt := range opts {
		opt(c)
	}
	c.client.SetBaseURL(baseURL)
	return c
}

type executePayload struct {
	Code     string `json:"code"`
	Category string `json:"category,omitempty"`
}

type executeReply struct {
	Status     string `json:"status"`
	Stdout     string `json:"stdout"`
	ErrorTrace string `json:"error_trace"`
	Message    string `json:"message"`
}

// Execute submits the script to the bridge and waits for the verdict.
func (c *Channel) Execute(ctx context.Context, script domain.Script) (*domain.ExecutionResult, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, domain.ErrBusy
	}
	defer c.busy.Store(false)

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(executePayload{Code: script.Body, Category: script.Category}).
		Post("/execute")
	if err != nil {
		return nil, friendly(err)
	}

	var reply executeReply
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, fmt.Errorf("bridge returned unreadable response (HTTP %d): %w", resp.StatusCode(), err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &domain.ExecutionResult{
			Status:   domain.ResultSuccess,
			Stdout:   reply.Stdout,
			Duration: time.Since(started),
		}, nil
	case http.StatusUnprocessableEntity:
		return &domain.ExecutionResult{
			Status:     domain.ResultFailure,
			Stdout:     reply.Stdout,
			ErrorTrace: reply.ErrorTrace,
			Duration:   time.Since(started),
		}, nil
	case http.StatusConflict:
		return nil, domain.ErrBusy
	case http.StatusGatewayTimeout:
		return nil, domain.ErrExecutionTimeout
	case http.StatusPreconditionFailed:
		return nil, fmt.Errorf("%s: %w", reply.Message, domain.ErrUnresolvedContext)
	default:
		return nil, fmt.Errorf("bridge rejected execute (HTTP %d): %s", resp.StatusCode(), reply.Message)
	}
}

// FetchObservation pulls an image or the last execution's log.
func (c *Channel) FetchObservation(ctx context.Context, kind domain.ObservationKind) (*domain.Observation, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("kind", string(kind)).
		Get("/observation")
	if err != nil {
		return nil, friendly(err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		obs := &domain.Observation{Kind: kind, CapturedAt: time.Now().UTC()}
		if kind == domain.ObservationImage {
			obs.Image = append([]byte(nil), resp.Body()...)
		} else {
			obs.Text = string(resp.Body())
		}
		return obs, nil
	case http.StatusServiceUnavailable:
		var reply executeReply
		_ = json.Unmarshal(resp.Body(), &reply)
		return nil, fmt.Errorf("%s: %w", reply.Message, domain.ErrCaptureFailed)
	default:
		return nil, fmt.Errorf("bridge rejected observation fetch (HTTP %d)", resp.StatusCode())
	}
}

// FetchLog returns the buffered diagnostic text since the last execute.
func (c *Channel) FetchLog(ctx context.Context) (string, error) {
	resp, err := c.client.R().SetContext(ctx).Get("/log")
	if err != nil {
		return "", friendly(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("bridge rejected log fetch (HTTP %d)", resp.StatusCode())
	}
	return string(resp.Body()), nil
}

// friendly rewrites transport errors a user can act on. Timeouts on the HTTP
// call itself count as execution timeouts: the bridge may still be working,
// the caller just stopped waiting.
func friendly(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return fmt.Errorf("connection refused, is the host bridge running? %w", err)
	case strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "Client.Timeout"):
		return fmt.Errorf("bridge call timed out: %w", domain.ErrExecutionTimeout)
	default:
		return fmt.Errorf("bridge call failed: %w", err)
	}
}

var _ ports.CommandChannel = (*Channel)(nil)
