package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/apitester/runtests/internal/auth"
)

var ErrMissingToken = errors.New("no csrf token configured")

// SaveRequest is the form the save and copy endpoints accept.
type SaveRequest struct {
	OperationID string
	URLPath     string
	Order       string
	ReplicaID   string
	Remark      string
	Payload     string
}

func (r SaveRequest) form(profileID, csrfToken string) url.Values {
	return url.Values{
		"json_body":        {r.Payload},
		"operation_id":     {r.OperationID},
		"profile_id":       {profileID},
		"order":            {r.Order},
		"urlpath":          {r.URLPath},
		"replica_id":       {r.ReplicaID},
		"remark":           {r.Remark},
		auth.CSRFFormField: {csrfToken},
	}
}

// SaveConfig stores the payload and metadata of a test in the current
// profile. The response body is not inspected.
func (c *Client) SaveConfig(ctx context.Context, req SaveRequest) error {
	return c.postConfig(ctx, SavePath, req)
}

// CopyConfig stores a new replica of a test in the current profile.
func (c *Client) CopyConfig(ctx context.Context, req SaveRequest) error {
	return c.postConfig(ctx, CopyPath, req)
}

func (c *Client) postConfig(ctx context.Context, path string, req SaveRequest) error {
	body, code, err := c.fetch(ctx, http.MethodPost, path, req.form(c.cfg.CurrentProfileID, c.cfg.AntiForgeryToken))
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", path, err)
	}
	c.log.Info("config.posted", "path", path, "operation_id", req.OperationID, "status", code)
	if code < 200 || code > 299 {
		return &StatusError{Method: http.MethodPost, URL: path, Code: code, Body: string(body)}
	}
	return nil
}

// FetchCSRFToken loads the index page and returns the CSRF cookie the
// server sets on it.
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.IndexURL(""), nil)
	if err != nil {
		return "", err
	}
	auth.Apply(r, c.cfg.SessionID, "")
	resp, err := c.httpClient.Do(r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(resp.Status)
	}
	token, err := auth.GetCSRFToken(resp.Header)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingToken, err)
	}
	return token, nil
}
