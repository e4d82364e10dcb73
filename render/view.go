package render

import (
	"fmt"
	"io"
	"sort"
	"sync"

	api "github.com/apitester/runtests/client"
	"github.com/apitester/runtests/runner"
)

// TextView writes each result to w as soon as it arrives and keeps them
// for the summary and the HTML report.
type TextView struct {
	mu      sync.Mutex
	w       io.Writer
	board   *runner.Board
	opts    TextOptions
	plain   bool
	results map[int][]api.TestResult
	err     error
}

func NewTextView(w io.Writer, board *runner.Board, opts TextOptions, plain bool) *TextView {
	return &TextView{
		w:       w,
		board:   board,
		opts:    opts,
		plain:   plain,
		results: make(map[int][]api.TestResult),
	}
}

var _ runner.View = (*TextView)(nil)

func (v *TextView) write(s string) {
	if v.plain {
		s = Plain(s)
	}
	if _, err := io.WriteString(v.w, s); err != nil && v.err == nil {
		v.err = err
	}
}

// Err returns the first error writing to the underlying writer.
func (v *TextView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *TextView) ClearAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = make(map[int][]api.TestResult)
}

func (v *TextView) ClearResults(index int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.results, index)
}

func (v *TextView) AppendResult(index int, result api.TestResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results[index] = append(v.results[index], result)
	v.write(TextBlock(result, v.opts))
}

func (v *TextView) Confirm(index int, action runner.Action) {
	v.mu.Lock()
	defer v.mu.Unlock()
	name := fmt.Sprintf("#%d", index+1)
	if r, err := v.board.Get(index); err == nil {
		name = r.Name()
	}
	v.write(green.Render(fmt.Sprintf("✓  %s %s", action.Done(), name)) + "\n")
}

func (v *TextView) Reload(runners []runner.Runner) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = make(map[int][]api.TestResult)
	v.write(gray.Render(fmt.Sprintf("reloaded %d runners", len(runners))) + "\n")
}

// Entries returns the collected results in runner order.
func (v *TextView) Entries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	indexes := make([]int, 0, len(v.results))
	for i := range v.results {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	var entries []Entry
	for _, i := range indexes {
		name := fmt.Sprintf("#%d", i+1)
		if r, err := v.board.Get(i); err == nil {
			name = r.Name()
		}
		for _, result := range v.results[i] {
			entries = append(entries, Entry{Index: i, Name: name, Result: result})
		}
	}
	return entries
}

// Failed reports whether any collected result failed.
func (v *TextView) Failed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, results := range v.results {
		for _, r := range results {
			if !r.Success {
				return true
			}
		}
	}
	return false
}
