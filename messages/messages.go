package messages

import (
	api "github.com/apitester/runtests/client"
	"github.com/apitester/runtests/runner"
)

type ClearAllMsg struct{}

type ClearResultsMsg struct {
	Index int
}

type AppendResultMsg struct {
	Index  int
	Result api.TestResult
}

type ConfirmMsg struct {
	Index  int
	Action runner.Action
}

// FadeConfirmMsg hides a confirmation unless a newer one replaced it.
type FadeConfirmMsg struct {
	Index int
	Seq   int
}

type ReloadMsg struct {
	Runners []runner.Runner
}
