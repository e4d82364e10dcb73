package render

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	api "github.com/apitester/runtests/client"
	"github.com/apitester/runtests/messages"
	"github.com/apitester/runtests/runner"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
)

// ConfirmFade is how long the saved or copied indicator stays visible.
const ConfirmFade = 1000 * time.Millisecond

type resultModel struct {
	result   api.TestResult
	expanded bool
}

type rowModel struct {
	results    []resultModel
	pending    bool
	confirmed  bool
	confirmAct runner.Action
	confirmSeq int
}

// BoardModel is the interactive runner board. It shows the runners of a
// runner.Board, forwards key presses to the bound Handlers and applies
// view updates arriving as messages.
type BoardModel struct {
	board    *runner.Board
	handlers runner.Handlers
	rows     []rowModel
	cursor   int
	spinner  spinner.Model
	jq       string
	quitting bool
}

func NewBoardModel(board *runner.Board, jq string) BoardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return BoardModel{
		board:   board,
		rows:    make([]rowModel, board.Len()),
		spinner: s,
		jq:      jq,
	}
}

// Bind implements runner.Binder.
func (m *BoardModel) Bind(h runner.Handlers) {
	m.handlers = h
}

func (m BoardModel) Init() tea.Cmd {
	InitStyles()
	return m.spinner.Tick
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case messages.ClearAllMsg:
		for i := range m.rows {
			m.rows[i].results = nil
		}
		return m, nil

	case messages.ClearResultsMsg:
		if m.valid(msg.Index) {
			m.rows[msg.Index].results = nil
		}
		return m, nil

	case messages.AppendResultMsg:
		if m.valid(msg.Index) {
			m.rows[msg.Index].pending = false
			m.rows[msg.Index].results = append(m.rows[msg.Index].results, resultModel{result: msg.Result})
		}
		return m, nil

	case messages.ConfirmMsg:
		if !m.valid(msg.Index) {
			return m, nil
		}
		m.rows[msg.Index].confirmed = true
		m.rows[msg.Index].confirmAct = msg.Action
		m.rows[msg.Index].confirmSeq++
		fade := messages.FadeConfirmMsg{Index: msg.Index, Seq: m.rows[msg.Index].confirmSeq}
		return m, tea.Tick(ConfirmFade, func(time.Time) tea.Msg { return fade })

	case messages.FadeConfirmMsg:
		if m.valid(msg.Index) && m.rows[msg.Index].confirmSeq == msg.Seq {
			m.rows[msg.Index].confirmed = false
		}
		return m, nil

	case messages.ReloadMsg:
		m.rows = make([]rowModel, len(msg.Runners))
		if m.cursor >= len(m.rows) {
			m.cursor = max(len(m.rows)-1, 0)
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m BoardModel) valid(index int) bool {
	return index >= 0 && index < len(m.rows)
}

func (m BoardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case " ", "space":
		call(m.handlers.OnToggle, m.cursor)
	case "a":
		call0(m.handlers.OnSelectAll)
	case "n":
		call0(m.handlers.OnSelectNone)
	case "r":
		for _, i := range m.board.Checked() {
			if m.valid(i) {
				m.rows[i].pending = true
			}
		}
		call0(m.handlers.OnRunAll)
	case "enter", "x":
		if m.valid(m.cursor) {
			m.rows[m.cursor].pending = true
			call(m.handlers.OnRunOne, m.cursor)
		}
	case "s":
		call(m.handlers.OnSave, m.cursor)
	case "c":
		call(m.handlers.OnCopy, m.cursor)
	case "t":
		if m.valid(m.cursor) {
			for i := range m.rows[m.cursor].results {
				m.rows[m.cursor].results[i].expanded = !m.rows[m.cursor].results[i].expanded
			}
		}
	}
	return m, nil
}

func call(fn func(int), index int) {
	if fn != nil {
		fn(index)
	}
}

func call0(fn func()) {
	if fn != nil {
		fn()
	}
}

func (m BoardModel) View() string {
	if m.quitting {
		return ""
	}
	var str strings.Builder
	runners := m.board.Runners()
	for i, r := range runners {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		check := "[ ]"
		if r.Checked {
			check = "[x]"
		}
		line := fmt.Sprintf("%s%s %s", cursor, check, r.Name())
		if r.URLPath != "" {
			line += gray.Render(fmt.Sprintf("  %s %s", strings.ToUpper(r.Method), r.URLPath))
		}
		str.WriteString(line)
		if i < len(m.rows) {
			row := m.rows[i]
			if row.pending {
				str.WriteString(" " + m.spinner.View())
			}
			if row.confirmed {
				str.WriteString(" " + green.Render(row.confirmAct.Done()))
			}
			str.WriteByte('\n')
			for _, res := range row.results {
				str.WriteString(indent(TextBlock(res.result, TextOptions{
					Expanded: res.expanded || !res.result.Success,
					JQ:       m.jq,
					Truncate: true,
				}), "    "))
			}
		} else {
			str.WriteByte('\n')
		}
	}
	str.WriteString(gray.Render("\n↑/↓ move • space select • a all • n none • r run selected • enter run • t toggle body • s save • c copy • q quit"))
	str.WriteByte('\n')
	return str.String()
}

func indent(s string, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// ChanView is a runner.View that hands every update to a running board
// program as a message.
type ChanView struct {
	ch   chan tea.Msg
	done chan struct{}
}

func NewChanView() *ChanView {
	return &ChanView{
		ch:   make(chan tea.Msg, 64),
		done: make(chan struct{}),
	}
}

var _ runner.View = (*ChanView)(nil)

func (v *ChanView) send(msg tea.Msg) {
	select {
	case v.ch <- msg:
	case <-v.done:
	}
}

func (v *ChanView) ClearAll()              { v.send(messages.ClearAllMsg{}) }
func (v *ChanView) ClearResults(index int) { v.send(messages.ClearResultsMsg{Index: index}) }
func (v *ChanView) Confirm(index int, action runner.Action) {
	v.send(messages.ConfirmMsg{Index: index, Action: action})
}
func (v *ChanView) AppendResult(index int, result api.TestResult) {
	v.send(messages.AppendResultMsg{Index: index, Result: result})
}
func (v *ChanView) Reload(runners []runner.Runner) {
	v.send(messages.ReloadMsg{Runners: runners})
}

// Close drops any update sent after the board has exited.
func (v *ChanView) Close() {
	select {
	case <-v.done:
	default:
		close(v.done)
	}
}

// RunBoard runs the interactive board until the user quits, feeding it
// the updates sent through view.
func RunBoard(ctx context.Context, model BoardModel, view *ChanView) error {
	defer view.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())
	go func() {
		for {
			select {
			case msg := <-view.ch:
				p.Send(msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(BoardModel); ok {
		m.quitting = false
		output := termenv.NewOutput(os.Stdout)
		output.WriteString(m.View())
	}
	return nil
}
