package api

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var ErrInvalidResult = errors.New("invalid test result")

// ResultConfig echoes the display metadata of the test that was run.
type ResultConfig struct {
	Summary     string `json:"summary"`
	URLPath     string `json:"urlpath"`
	OperationID string `json:"operation_id"`
	Method      string `json:"method,omitempty"`
}

type TestResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	// Only present when Success is false
	Messages      []string     `json:"messages,omitempty"`
	Config        ResultConfig `json:"config"`
	ExecutionTime float64      `json:"execution_time"`
}

// Validate checks that failures carry reasons and passes carry none.
func (r TestResult) Validate() error {
	if !r.Success && len(r.Messages) == 0 {
		return fmt.Errorf("%w: failed result without messages", ErrInvalidResult)
	}
	if r.Success && len(r.Messages) > 0 {
		return fmt.Errorf("%w: passed result with messages", ErrInvalidResult)
	}
	return nil
}

// DecodeError is returned when a 2xx reply is not a usable TestResult.
// Body holds the raw reply. Decoded is set when the reply was valid JSON
// but broke the success/messages rule.
type DecodeError struct {
	Body    string
	Decoded *TestResult
	Err     error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeResult(body []byte) (TestResult, error) {
	var result TestResult
	if err := json.Unmarshal(body, &result); err != nil {
		return TestResult{}, &DecodeError{
			Body: string(body),
			Err:  fmt.Errorf("%w: %v", ErrInvalidResult, err),
		}
	}
	if err := result.Validate(); err != nil {
		return TestResult{}, &DecodeError{Body: string(body), Decoded: &result, Err: err}
	}
	return result, nil
}

// FailedResult turns a request error into a failure result, so a runner
// whose request never produced a TestResult still renders one. Whatever
// the server did send back is kept in Text.
func FailedResult(cfg ResultConfig, err error) TestResult {
	result := TestResult{
		Success:       false,
		Messages:      []string{err.Error()},
		Config:        cfg,
		ExecutionTime: -1,
	}
	var statusErr *StatusError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &statusErr):
		result.Text = statusErr.Body
	case errors.As(err, &decodeErr):
		result.Text = decodeErr.Body
		if d := decodeErr.Decoded; d != nil {
			result.Config = mergeConfig(d.Config, cfg)
			result.ExecutionTime = d.ExecutionTime
			if d.Text != "" {
				result.Text = d.Text
			}
		}
	}
	return result
}

// mergeConfig prefers what the server reported, falling back to what the
// request knew.
func mergeConfig(reported, requested ResultConfig) ResultConfig {
	if reported.Summary == "" {
		reported.Summary = requested.Summary
	}
	if reported.URLPath == "" {
		reported.URLPath = requested.URLPath
	}
	if reported.OperationID == "" {
		reported.OperationID = requested.OperationID
	}
	if reported.Method == "" {
		reported.Method = requested.Method
	}
	return reported
}
