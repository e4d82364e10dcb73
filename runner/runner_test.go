package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	api "github.com/apitester/runtests/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTester struct {
	runs     atomic.Int32
	tests    atomic.Int32
	saves    atomic.Int32
	copies   atomic.Int32
	runErr   error
	saveErr  error
	lastTest atomic.Value
}

func (f *fakeTester) Run(_ context.Context, req api.RunRequest) (api.TestResult, error) {
	f.runs.Add(1)
	if f.runErr != nil {
		return api.TestResult{}, f.runErr
	}
	return api.TestResult{
		Success:       true,
		Text:          "{}",
		Config:        api.ResultConfig{URLPath: req.URLPath, OperationID: req.OperationID},
		ExecutionTime: 5,
	}, nil
}

func (f *fakeTester) RunTest(_ context.Context, test string) (api.TestResult, error) {
	f.tests.Add(1)
	f.lastTest.Store(test)
	return api.TestResult{Success: true, Config: api.ResultConfig{Summary: test}}, nil
}

func (f *fakeTester) SaveConfig(context.Context, api.SaveRequest) error {
	f.saves.Add(1)
	return f.saveErr
}

func (f *fakeTester) CopyConfig(context.Context, api.SaveRequest) error {
	f.copies.Add(1)
	return f.saveErr
}

type event struct {
	kind   string
	index  int
	action Action
	result api.TestResult
	at     time.Time
}

type recordingView struct {
	mu     sync.Mutex
	events []event
}

func (v *recordingView) record(e event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e.at = time.Now()
	v.events = append(v.events, e)
}

func (v *recordingView) ClearAll()              { v.record(event{kind: "clear-all", index: -1}) }
func (v *recordingView) ClearResults(index int) { v.record(event{kind: "clear", index: index}) }
func (v *recordingView) AppendResult(index int, result api.TestResult) {
	v.record(event{kind: "append", index: index, result: result})
}
func (v *recordingView) Confirm(index int, action Action) {
	v.record(event{kind: "confirm", index: index, action: action})
}
func (v *recordingView) Reload(runners []Runner) {
	v.record(event{kind: "reload", index: len(runners)})
}

func (v *recordingView) ofKind(kind string) []event {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []event
	for _, e := range v.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func sampleRunners() []Runner {
	return []Runner{
		{Method: "get", URLPath: "/obp/v4.0.0/banks", ConfigPK: 1, OperationID: "getBanks", ReplicaID: 1, Order: 1, Summary: "Get Banks"},
		{Method: "post", URLPath: "/obp/v4.0.0/banks", ConfigPK: 1, OperationID: "createBank", ReplicaID: 1, Order: 2, Payload: `{"id": "x"}`},
		{Test: "get /obp/v4.0.0/users/current", Checked: true},
	}
}

func TestSelectAllRunsEveryRunner(t *testing.T) {
	tester := &fakeTester{}
	view := &recordingView{}
	c := NewController(tester, NewBoard(sampleRunners()), view)

	c.SelectAll()
	n := c.RunSelected(context.Background())

	assert.Equal(t, 3, n)
	assert.EqualValues(t, 2, tester.runs.Load())
	assert.EqualValues(t, 1, tester.tests.Load())
	assert.Len(t, view.ofKind("append"), 3)
	assert.Len(t, view.ofKind("clear-all"), 1)
}

func TestSelectNoneRunsNothing(t *testing.T) {
	tester := &fakeTester{}
	view := &recordingView{}
	c := NewController(tester, NewBoard(sampleRunners()), view)

	c.SelectNone()
	n := c.RunSelected(context.Background())

	assert.Zero(t, n)
	assert.Zero(t, tester.runs.Load()+tester.tests.Load())
	assert.Empty(t, view.ofKind("append"))
	// the result areas are still cleared
	assert.Len(t, view.ofKind("clear-all"), 1)
}

func TestRunSelectedOnlyRunsChecked(t *testing.T) {
	tester := &fakeTester{}
	view := &recordingView{}
	c := NewController(tester, NewBoard(sampleRunners()), view)

	n := c.RunSelected(context.Background())

	require.Equal(t, 1, n)
	appended := view.ofKind("append")
	require.Len(t, appended, 1)
	assert.Equal(t, 2, appended[0].index)
	assert.Equal(t, "get /obp/v4.0.0/users/current", tester.lastTest.Load())
}

func TestRunOneClearsOnlyItsRow(t *testing.T) {
	view := &recordingView{}
	c := NewController(&fakeTester{}, NewBoard(sampleRunners()), view)

	require.NoError(t, c.RunOne(context.Background(), 1))

	clears := view.ofKind("clear")
	require.Len(t, clears, 1)
	assert.Equal(t, 1, clears[0].index)
	appended := view.ofKind("append")
	require.Len(t, appended, 1)
	assert.Equal(t, 1, appended[0].index)
	assert.Equal(t, "createBank", appended[0].result.Config.Summary)

	err := c.RunOne(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNoRunner)
}

func TestRunErrorRendersFailure(t *testing.T) {
	view := &recordingView{}
	c := NewController(&fakeTester{runErr: errors.New("connection refused")}, NewBoard(sampleRunners()), view)

	require.NoError(t, c.RunOne(context.Background(), 0))

	appended := view.ofKind("append")
	require.Len(t, appended, 1)
	result := appended[0].result
	assert.False(t, result.Success)
	assert.Equal(t, []string{"connection refused"}, result.Messages)
	assert.Equal(t, "Get Banks", result.Config.Summary)
	assert.NoError(t, result.Validate())
}

func TestSaveConfirmsThenReloadsAfterDelay(t *testing.T) {
	tester := &fakeTester{}
	view := &recordingView{}
	source := StaticSource(sampleRunners()[:2])
	c := NewController(tester, NewBoard(sampleRunners()), view,
		WithSource(source), WithReloadDelay(50*time.Millisecond))

	start := time.Now()
	require.NoError(t, c.SaveConfig(context.Background(), 0))

	assert.EqualValues(t, 1, tester.saves.Load())
	confirms := view.ofKind("confirm")
	require.Len(t, confirms, 1)
	assert.Equal(t, ActionSave, confirms[0].action)
	reloads := view.ofKind("reload")
	require.Len(t, reloads, 1)
	assert.GreaterOrEqual(t, reloads[0].at.Sub(start), 50*time.Millisecond)
	assert.Equal(t, 2, reloads[0].index)
	assert.Equal(t, 2, c.Board().Len())
}

func TestCopyFailureStillReloads(t *testing.T) {
	tester := &fakeTester{saveErr: errors.New("boom")}
	view := &recordingView{}
	c := NewController(tester, NewBoard(sampleRunners()), view, WithReloadDelay(10*time.Millisecond))

	err := c.CopyConfig(context.Background(), 1)

	assert.ErrorContains(t, err, "boom")
	assert.EqualValues(t, 1, tester.copies.Load())
	assert.Empty(t, view.ofKind("confirm"))
	assert.Len(t, view.ofKind("reload"), 1)
}

func TestSaveReloadsWhenServerNeverAnswers(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := api.New(api.Config{BaseURL: server.URL, Timeout: 100 * time.Millisecond})
	view := &recordingView{}
	c := NewController(client, NewBoard(sampleRunners()), view, WithReloadDelay(20*time.Millisecond))

	start := time.Now()
	err := c.SaveConfig(context.Background(), 0)

	assert.Error(t, err)
	assert.Empty(t, view.ofKind("confirm"))
	reloads := view.ofKind("reload")
	require.Len(t, reloads, 1)
	// gated on the request settling, so never before the timeout
	assert.GreaterOrEqual(t, reloads[0].at.Sub(start), 100*time.Millisecond)
}

func TestHandlers(t *testing.T) {
	tester := &fakeTester{}
	view := &recordingView{}
	c := NewController(tester, NewBoard(sampleRunners()), view, WithReloadDelay(time.Millisecond))
	h := c.Handlers(context.Background())

	h.OnSelectAll()
	assert.Equal(t, []int{0, 1, 2}, c.Board().Checked())
	h.OnSelectNone()
	assert.Empty(t, c.Board().Checked())
	h.OnToggle(1)
	assert.Equal(t, []int{1}, c.Board().Checked())

	h.OnRunAll()
	c.Wait()
	assert.EqualValues(t, 1, tester.runs.Load())

	h.OnRunOne(0)
	h.OnSave(0)
	h.OnCopy(1)
	c.Wait()
	assert.EqualValues(t, 2, tester.runs.Load())
	assert.EqualValues(t, 1, tester.saves.Load())
	assert.EqualValues(t, 1, tester.copies.Load())
	assert.Len(t, view.ofKind("reload"), 2)
}

type binder struct{ h Handlers }

func (b *binder) Bind(h Handlers) { b.h = h }

func TestBindTo(t *testing.T) {
	c := NewController(&fakeTester{}, NewBoard(sampleRunners()), &recordingView{})
	b := &binder{}
	c.BindTo(context.Background(), b)
	require.NotNil(t, b.h.OnRunAll)
	b.h.OnSelectAll()
	assert.Len(t, c.Board().Checked(), 3)
}

func TestParseRunners(t *testing.T) {
	doc := []byte(`
runners:
  - method: post
    urlpath: /obp/v4.0.0/banks
    config_pk: 1
    operation_id: createBank
    order: 2
    replica_id: 2
    json_body: '{"id": "x"}'
  - method: post
    urlpath: /obp/v4.0.0/banks
    config_pk: 1
    operation_id: createBank
    order: 2
  - test: get /obp/v4.0.0/banks
    order: 1
    checked: true
`)
	runners, err := ParseRunners(doc)
	require.NoError(t, err)
	require.Len(t, runners, 3)
	assert.Equal(t, "get /obp/v4.0.0/banks", runners[0].Test)
	assert.True(t, runners[0].UsesTemplate())
	assert.Equal(t, 1, runners[1].ReplicaID)
	assert.Equal(t, 2, runners[2].ReplicaID)
	assert.Equal(t, `{"id": "x"}`, runners[2].Payload)
}

func TestParseRunnersDefaults(t *testing.T) {
	doc := []byte(`
runners:
  - method: get
    urlpath: /obp/v4.0.0/banks
    operation_id: getBanks
  - method: get
    urlpath: /obp/v4.0.0/users
    operation_id: getUsers
    order: 0
    replica_id: 3
`)
	runners, err := ParseRunners(doc)
	require.NoError(t, err)
	require.Len(t, runners, 2)
	assert.Equal(t, "getUsers", runners[0].OperationID)
	assert.Equal(t, 0, runners[0].Order)
	assert.Equal(t, 3, runners[0].ReplicaID)
	assert.Equal(t, DefaultOrder, runners[1].Order)
	assert.Equal(t, DefaultReplicaID, runners[1].ReplicaID)
	assert.Equal(t, "100", runners[1].SaveRequest().Order)
}

func TestParseRunnersRejectsIncomplete(t *testing.T) {
	_, err := ParseRunners([]byte("runners:\n  - method: get\n"))
	assert.Error(t, err)
}

func TestFileSourceReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runners.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runners:\n  - test: a\n"), 0o600))

	view := &recordingView{}
	c := NewController(&fakeTester{}, NewBoard(nil), view, WithSource(FileSource{Path: path}))
	require.NoError(t, c.Reload())
	assert.Equal(t, 1, c.Board().Len())

	require.NoError(t, os.WriteFile(path, []byte("runners:\n  - test: a\n  - test: b\n"), 0o600))
	require.NoError(t, c.Reload())
	assert.Equal(t, 2, c.Board().Len())

	require.NoError(t, os.Remove(path))
	assert.Error(t, c.Reload())
	assert.Equal(t, 2, c.Board().Len())
}

func TestBoardFind(t *testing.T) {
	b := NewBoard(sampleRunners())
	i, err := b.Find("createBank")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	i, err = b.Find("get /obp/v4.0.0/users/current")
	require.NoError(t, err)
	assert.Equal(t, 2, i)
	_, err = b.Find("missing")
	assert.ErrorIs(t, err, ErrNoRunner)
}

func TestFilterBody(t *testing.T) {
	out, err := FilterBody(".banks[].id", `{"banks": [{"id": "a", "n": 1}, {"id": "b", "n": 2.5}]}`)
	require.NoError(t, err)
	assert.Equal(t, "\"a\"\n\"b\"", out)

	out, err = FilterBody("[.banks[].n] | add", `{"banks": [{"n": 1}, {"n": 2}]}`)
	require.NoError(t, err)
	assert.Equal(t, "3", out)

	_, err = FilterBody(".", "not json")
	assert.Error(t, err)

	_, err = FilterBody(".[", "{}")
	assert.Error(t, err)
}
