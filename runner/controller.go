package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	api "github.com/apitester/runtests/client"
)

// DefaultReloadDelay is how long save and copy wait before reloading.
const DefaultReloadDelay = 1000 * time.Millisecond

// Tester is the part of the API client the controller drives.
type Tester interface {
	Run(ctx context.Context, req api.RunRequest) (api.TestResult, error)
	RunTest(ctx context.Context, test string) (api.TestResult, error)
	SaveConfig(ctx context.Context, req api.SaveRequest) error
	CopyConfig(ctx context.Context, req api.SaveRequest) error
}

// Action names what a confirmation is for.
type Action string

const (
	ActionSave Action = "save"
	ActionCopy Action = "copy"
)

// Done is the past tense shown next to a confirmed runner.
func (a Action) Done() string {
	switch a {
	case ActionSave:
		return "saved"
	case ActionCopy:
		return "copied"
	}
	return string(a)
}

// View is the presentation side: one result area per runner, a
// confirmation indicator per runner, and a way to show a reloaded set.
// Calls may arrive from several goroutines.
type View interface {
	ClearAll()
	ClearResults(index int)
	AppendResult(index int, result api.TestResult)
	Confirm(index int, action Action)
	Reload(runners []Runner)
}

type Controller struct {
	tester      Tester
	board       *Board
	view        View
	source      Source
	reloadDelay time.Duration
	log         *slog.Logger
	inflight    sync.WaitGroup
}

type Option func(*Controller)

func WithSource(s Source) Option {
	return func(c *Controller) { c.source = s }
}

func WithReloadDelay(d time.Duration) Option {
	return func(c *Controller) { c.reloadDelay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func NewController(tester Tester, board *Board, view View, opts ...Option) *Controller {
	c := &Controller{
		tester:      tester,
		board:       board,
		view:        view,
		reloadDelay: DefaultReloadDelay,
		log:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Board() *Board {
	return c.board
}

func (c *Controller) SelectAll() {
	c.board.SetAll(true)
}

func (c *Controller) SelectNone() {
	c.board.SetAll(false)
}

// RunSelected clears every result area, then runs each checked runner
// concurrently and waits for all of them. It returns how many runs were
// issued.
func (c *Controller) RunSelected(ctx context.Context) int {
	c.view.ClearAll()
	selected := c.board.Checked()
	c.log.Info("run.selected", "count", len(selected))

	var wg sync.WaitGroup
	for _, i := range selected {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			c.run(ctx, index)
		}(i)
	}
	wg.Wait()
	return len(selected)
}

// RunOne clears one runner's result area and runs it.
func (c *Controller) RunOne(ctx context.Context, index int) error {
	if _, err := c.board.Get(index); err != nil {
		return err
	}
	c.view.ClearResults(index)
	c.run(ctx, index)
	return nil
}

func (c *Controller) run(ctx context.Context, index int) {
	r, err := c.board.Get(index)
	if err != nil {
		c.log.Warn("run.skipped", "index", index, "error", err)
		return
	}

	var result api.TestResult
	if r.UsesTemplate() {
		result, err = c.tester.RunTest(ctx, r.Test)
	} else {
		result, err = c.tester.Run(ctx, r.RunRequest())
	}
	if err != nil {
		c.log.Warn("run.failed", "index", index, "operation_id", r.OperationID, "error", err)
		if result.Validate() != nil {
			result = api.FailedResult(api.ResultConfig{
				URLPath:     r.URLPath,
				OperationID: r.OperationID,
				Method:      r.Method,
			}, err)
		}
	}
	if result.Config.Summary == "" {
		result.Config.Summary = r.Name()
	}
	c.log.Debug("run.done", "index", index, "operation_id", r.OperationID, "success", result.Success, "execution_time", result.ExecutionTime)
	c.view.AppendResult(index, result)
}

// SaveConfig posts a runner's configuration to the save endpoint, confirms
// on success, and reloads once the reload delay has passed and the request
// has settled, whatever its outcome.
func (c *Controller) SaveConfig(ctx context.Context, index int) error {
	return c.persist(ctx, index, ActionSave, c.tester.SaveConfig)
}

// CopyConfig is SaveConfig against the copy endpoint.
func (c *Controller) CopyConfig(ctx context.Context, index int) error {
	return c.persist(ctx, index, ActionCopy, c.tester.CopyConfig)
}

func (c *Controller) persist(
	ctx context.Context,
	index int,
	action Action,
	post func(context.Context, api.SaveRequest) error,
) error {
	r, err := c.board.Get(index)
	if err != nil {
		return err
	}

	delay := time.NewTimer(c.reloadDelay)
	defer delay.Stop()

	postErr := post(ctx, r.SaveRequest())
	if postErr != nil {
		c.log.Warn("config."+string(action)+".failed", "index", index, "operation_id", r.OperationID, "error", postErr)
	} else {
		c.view.Confirm(index, action)
	}

	select {
	case <-delay.C:
	case <-ctx.Done():
		return errors.Join(postErr, ctx.Err())
	}
	return errors.Join(postErr, c.Reload())
}

// Reload reads the runner set from the source again and hands it to the
// view. Without a source the current set is shown again.
func (c *Controller) Reload() error {
	if c.source != nil {
		runners, err := c.source.Load()
		if err != nil {
			c.log.Error("reload.failed", "error", err)
			c.view.Reload(c.board.Runners())
			return err
		}
		c.board.Replace(runners)
	}
	c.log.Info("reload", "runners", c.board.Len())
	c.view.Reload(c.board.Runners())
	return nil
}

// Wait blocks until every run started through Handlers has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
