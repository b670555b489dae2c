package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/models"
)

// Options configures a Client.
type Options struct {
	Endpoint   string
	Token      string
	Stack      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client ships log records to the remote collector. Delivery is best effort:
// one POST per record, no retries, and failures never reach the caller.
type Client struct {
	endpoint string
	token    string
	stack    string
	timeout  time.Duration
	http     *http.Client
	now      func() time.Time

	wg sync.WaitGroup
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		stack:    opts.Stack,
		timeout:  opts.Timeout,
		http:     opts.HTTPClient,
		now:      time.Now,
	}
}

// NewRecord builds the payload for a single log line.
func NewRecord(stack string, level Level, source, message string, at time.Time) models.LogRecord {
	return models.LogRecord{
		Stack:     stack,
		Level:     string(level),
		Source:    source,
		Message:   message,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// Log sends one record and waits for the collector to answer. Errors are
// reported on the local slog logger and swallowed.
func (c *Client) Log(ctx context.Context, stack string, level Level, source, message, token string) {
	rec := NewRecord(stack, level, source, message, c.now())

	body, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("log delivery failed: encode error", "source", "logger", "error", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		slog.Warn("log delivery failed: bad request", "source", "logger", "endpoint", c.endpoint, "error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("log delivery failed", "source", "logger", "endpoint", c.endpoint, "error", err.Error())
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("log delivery rejected", "source", "logger", "endpoint", c.endpoint, "status", resp.StatusCode)
	}
}

// Emit records message locally and ships it to the collector in the
// background with the configured stack and token. It never blocks on the
// network.
func (c *Client) Emit(level Level, source, message string) {
	slog.Log(context.Background(), level.Slog(), message, "source", source)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		c.Log(ctx, c.stack, level, source, message, c.token)
	}()
}

func (c *Client) Debug(source, message string)   { c.Emit(LevelDebug, source, message) }
func (c *Client) Info(source, message string)    { c.Emit(LevelInfo, source, message) }
func (c *Client) Warning(source, message string) { c.Emit(LevelWarning, source, message) }
func (c *Client) Error(source, message string)   { c.Emit(LevelError, source, message) }

// Wait blocks until every record handed to Emit has been delivered or dropped.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(Level, string, string) {}
