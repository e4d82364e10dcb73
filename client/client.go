package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apitester/runtests/internal/auth"
	"github.com/apitester/runtests/urltmpl"
	"github.com/google/uuid"
)

const (
	DefaultIndexURLTemplate = "/runtests/"
	DefaultRunURLTemplate   = "/runtests/run/{method}/{urlpath}/{config_pk}/{operation_id}"
	DefaultTestURLTemplate  = "/runtests/run/all"
	DefaultTimeout          = 30 * time.Second

	SavePath = "/runtests/save/json_body"
	CopyPath = "/runtests/copy/json_body"
)

// Config holds everything the surrounding page used to provide as globals.
type Config struct {
	BaseURL          string
	AntiForgeryToken string
	CurrentProfileID string
	SessionID        string
	// IndexURLTemplate is followed by a test configuration pk to navigate
	// to that configuration.
	IndexURLTemplate string
	// RunURLTemplate carries {method}, {urlpath}, {config_pk} and
	// {operation_id} tokens.
	RunURLTemplate string
	// TestURLTemplate carries the "all" placeholder replaced by a test name.
	TestURLTemplate string
	Timeout         time.Duration
}

func (c Config) withDefaults() Config {
	if c.IndexURLTemplate == "" {
		c.IndexURLTemplate = DefaultIndexURLTemplate
	}
	if c.RunURLTemplate == "" {
		c.RunURLTemplate = DefaultRunURLTemplate
	}
	if c.TestURLTemplate == "" {
		c.TestURLTemplate = DefaultTestURLTemplate
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

type Client struct {
	cfg          Config
	httpClient   *http.Client
	log          *slog.Logger
	newRequestID func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:          cfg.withDefaults(),
		httpClient:   &http.Client{},
		log:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Config() Config {
	return c.cfg
}

// IndexURL returns the absolute index URL for a test configuration.
func (c *Client) IndexURL(configPK string) string {
	return urltmpl.Join(c.cfg.BaseURL, urltmpl.Index(c.cfg.IndexURLTemplate, configPK))
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to %s to %s\nResponse: %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

func (c *Client) fetch(ctx context.Context, method string, path string, form url.Values) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	fullURL := urltmpl.Join(c.cfg.BaseURL, path)
	var payload io.Reader
	if form != nil {
		payload = strings.NewReader(form.Encode())
	} else {
		payload = bytes.NewBuffer([]byte{})
	}
	r, err := http.NewRequestWithContext(ctx, method, fullURL, payload)
	if err != nil {
		return nil, 0, err
	}
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	r.Header.Set("X-Request-ID", c.newRequestID())
	if c.cfg.BaseURL != "" {
		r.Header.Set("Referer", c.IndexURL(""))
	}
	auth.Apply(r, c.cfg.SessionID, c.cfg.AntiForgeryToken)

	start := time.Now()
	resp, err := c.httpClient.Do(r)
	if err != nil {
		c.log.Warn("request.failed", "method", method, "url", fullURL, "error", err)
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	c.log.Debug("request.done",
		"method", method,
		"url", fullURL,
		"status", resp.StatusCode,
		"request_id", r.Header.Get("X-Request-ID"),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return body, resp.StatusCode, nil
}
