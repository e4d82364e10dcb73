package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/apitester/runtests/internal/auth"
	"github.com/apitester/runtests/urltmpl"
)

// RunRequest identifies one configured test and the payload to run it with.
type RunRequest struct {
	Method      string
	URLPath     string
	ConfigPK    string
	OperationID string
	ReplicaID   string
	Order       string
	Remark      string
	Payload     string
}

func (r RunRequest) resultConfig() ResultConfig {
	return ResultConfig{
		URLPath:     r.URLPath,
		OperationID: r.OperationID,
		Method:      r.Method,
	}
}

// Run posts the payload to the run endpoint and decodes the TestResult.
// On error the returned result is a FailedResult describing it.
func (c *Client) Run(ctx context.Context, req RunRequest) (TestResult, error) {
	path := urltmpl.RunPath(c.cfg.RunURLTemplate, req.Method, req.URLPath, req.ConfigPK, req.OperationID)
	form := url.Values{
		"json_body":        {req.Payload},
		"operation_id":     {req.OperationID},
		"config_pk":        {req.ConfigPK},
		"profile_id":       {c.cfg.CurrentProfileID},
		"order":            {req.Order},
		"replica_id":       {req.ReplicaID},
		"remark":           {req.Remark},
		auth.CSRFFormField: {c.cfg.AntiForgeryToken},
	}
	result, err := c.fetchResult(ctx, http.MethodPost, path, form)
	if err != nil {
		return FailedResult(req.resultConfig(), err), err
	}
	return result, nil
}

// RunTest runs a test by name through the precomputed test URL template.
func (c *Client) RunTest(ctx context.Context, test string) (TestResult, error) {
	path := urltmpl.Substitute(c.cfg.TestURLTemplate, urltmpl.TestPlaceholder, test)
	result, err := c.fetchResult(ctx, http.MethodGet, path, nil)
	if err != nil {
		return FailedResult(ResultConfig{Summary: test, URLPath: path}, err), err
	}
	return result, nil
}

func (c *Client) fetchResult(ctx context.Context, method string, path string, form url.Values) (TestResult, error) {
	body, code, err := c.fetch(ctx, method, path, form)
	if err != nil {
		return TestResult{}, fmt.Errorf("request failed: %w", err)
	}
	if code < 200 || code > 299 {
		return TestResult{}, &StatusError{
			Method: method,
			URL:    urltmpl.Join(c.cfg.BaseURL, path),
			Code:   code,
			Body:   string(body),
		}
	}
	return decodeResult(body)
}
