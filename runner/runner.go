package runner

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	api "github.com/apitester/runtests/client"
)

var ErrNoRunner = errors.New("no such runner")

// Runner is one configured test case with its own payload and selection.
type Runner struct {
	// Test names a test for the precomputed test URL; when set and Method
	// is empty the runner is run through a GET.
	Test        string `yaml:"test,omitempty"`
	Method      string `yaml:"method,omitempty"`
	URLPath     string `yaml:"urlpath,omitempty"`
	ConfigPK    int    `yaml:"config_pk,omitempty"`
	OperationID string `yaml:"operation_id,omitempty"`
	ReplicaID   int    `yaml:"replica_id,omitempty"`
	Order       int    `yaml:"order,omitempty"`
	Remark      string `yaml:"remark,omitempty"`
	Summary     string `yaml:"summary,omitempty"`
	Payload     string `yaml:"json_body,omitempty"`
	Checked     bool   `yaml:"checked,omitempty"`
}

// UsesTemplate reports whether the runner goes through the GET test
// template instead of the POST run endpoint.
func (r Runner) UsesTemplate() bool {
	return r.Test != "" && r.Method == ""
}

func (r Runner) Name() string {
	switch {
	case r.Summary != "":
		return r.Summary
	case r.OperationID != "":
		return r.OperationID
	case r.Test != "":
		return r.Test
	}
	return fmt.Sprintf("%s %s", r.Method, r.URLPath)
}

func (r Runner) RunRequest() api.RunRequest {
	return api.RunRequest{
		Method:      r.Method,
		URLPath:     r.URLPath,
		ConfigPK:    strconv.Itoa(r.ConfigPK),
		OperationID: r.OperationID,
		ReplicaID:   strconv.Itoa(r.ReplicaID),
		Order:       strconv.Itoa(r.Order),
		Remark:      r.Remark,
		Payload:     r.Payload,
	}
}

func (r Runner) SaveRequest() api.SaveRequest {
	return api.SaveRequest{
		OperationID: r.OperationID,
		URLPath:     r.URLPath,
		Order:       strconv.Itoa(r.Order),
		ReplicaID:   strconv.Itoa(r.ReplicaID),
		Remark:      r.Remark,
		Payload:     r.Payload,
	}
}

// Board holds the runners shown on one page and their selection state.
type Board struct {
	mu      sync.Mutex
	runners []Runner
}

func NewBoard(runners []Runner) *Board {
	b := &Board{}
	b.Replace(runners)
	return b
}

// Replace swaps the whole runner set, as a page reload does.
func (b *Board) Replace(runners []Runner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runners = append([]Runner(nil), runners...)
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.runners)
}

func (b *Board) Get(index int) (Runner, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.runners) {
		return Runner{}, fmt.Errorf("%w: %d", ErrNoRunner, index)
	}
	return b.runners[index], nil
}

// Runners returns a copy of the current runners.
func (b *Board) Runners() []Runner {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Runner(nil), b.runners...)
}

func (b *Board) SetAll(checked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.runners {
		b.runners[i].Checked = checked
	}
}

func (b *Board) Toggle(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.runners) {
		return fmt.Errorf("%w: %d", ErrNoRunner, index)
	}
	b.runners[index].Checked = !b.runners[index].Checked
	return nil
}

// SetPayload replaces the JSON body a runner will send.
func (b *Board) SetPayload(index int, payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.runners) {
		return fmt.Errorf("%w: %d", ErrNoRunner, index)
	}
	b.runners[index].Payload = payload
	return nil
}

// Checked returns the indexes of the selected runners in board order.
func (b *Board) Checked() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []int
	for i, r := range b.runners {
		if r.Checked {
			out = append(out, i)
		}
	}
	return out
}

// Find returns the index of the first runner whose operation id or test
// name matches id.
func (b *Board) Find(id string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.runners {
		if r.OperationID == id || (r.Test != "" && r.Test == id) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNoRunner, id)
}
