package runner

import "context"

// Handlers are the user actions a presentation can trigger. Network-bound
// handlers return immediately and finish in the background.
type Handlers struct {
	OnRunAll     func()
	OnRunOne     func(index int)
	OnSave       func(index int)
	OnCopy       func(index int)
	OnSelectAll  func()
	OnSelectNone func()
	// OnToggle flips a single runner's checkbox.
	OnToggle func(index int)
}

// Binder is implemented by presentations that accept Handlers.
type Binder interface {
	Bind(h Handlers)
}

func (c *Controller) Handlers(ctx context.Context) Handlers {
	return Handlers{
		OnRunAll: func() {
			c.background(func() { c.RunSelected(ctx) })
		},
		OnRunOne: func(index int) {
			c.background(func() { _ = c.RunOne(ctx, index) })
		},
		OnSave: func(index int) {
			c.background(func() { _ = c.SaveConfig(ctx, index) })
		},
		OnCopy: func(index int) {
			c.background(func() { _ = c.CopyConfig(ctx, index) })
		},
		OnSelectAll:  c.SelectAll,
		OnSelectNone: c.SelectNone,
		OnToggle: func(index int) {
			_ = c.board.Toggle(index)
		},
	}
}

// BindTo hands the controller's handlers to a presentation.
func (c *Controller) BindTo(ctx context.Context, b Binder) {
	b.Bind(c.Handlers(ctx))
}

func (c *Controller) background(fn func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn()
	}()
}
