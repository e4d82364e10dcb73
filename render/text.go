package render

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/acarl005/stripansi"
	api "github.com/apitester/runtests/client"
	"github.com/apitester/runtests/runner"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/viper"
)

var green = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
var red = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
var gray = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
var borderBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())

// InitStyles picks up the configured colors.
func InitStyles() {
	if c := viper.GetString("color.green"); c != "" {
		green = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	if c := viper.GetString("color.red"); c != "" {
		red = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	if c := viper.GetString("color.gray"); c != "" {
		gray = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
}

// TextOptions control how a result is rendered on a terminal.
type TextOptions struct {
	// Expanded shows the body of passing results, which are otherwise
	// collapsed.
	Expanded bool
	// JQ filters JSON bodies before display.
	JQ string
	// Truncate limits the body to a screenful.
	Truncate bool
}

func renderResultHeader(header string, passed bool) string {
	var headerStr string
	if passed {
		headerStr = green.Render(fmt.Sprintf("✓  %s", header))
	} else {
		headerStr = red.Render(fmt.Sprintf("X  %s", header))
	}
	box := borderBox.Render(fmt.Sprintf(" %s ", headerStr))
	sliced := strings.Split(box, "\n")
	if len(sliced) > 2 {
		sliced[2] = strings.Replace(sliced[2], "─", "┬", 1)
	}
	return strings.Join(sliced, "\n") + "\n"
}

func renderEdges(lines []string) string {
	var str strings.Builder
	var edges strings.Builder
	for _, line := range lines {
		height := lipgloss.Height(line)
		edges.Reset()
		edges.WriteString(" ├─")
		for i := 1; i < height; i++ {
			edges.WriteString("\n │ ")
		}
		str.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, edges.String(), "  "+line))
		str.WriteByte('\n')
	}
	return str.String()
}

// TextBlock renders one result for a terminal. The summary line always
// shows summary, URL path and elapsed time.
func TextBlock(result api.TestResult, opts TextOptions) string {
	var str strings.Builder
	str.WriteString(renderResultHeader(result.Config.Summary, result.Success))

	lines := []string{
		gray.Render(result.Config.URLPath),
		gray.Render(fmt.Sprintf("Took %s ms", formatMillis(result.ExecutionTime))),
	}
	for _, msg := range result.Messages {
		lines = append(lines, red.Render(msg))
	}
	str.WriteString(renderEdges(lines))

	if result.Success && !opts.Expanded {
		str.WriteString(gray.Render(" ▸ response hidden"))
		str.WriteString("\n\n")
		return str.String()
	}

	str.WriteString(" > Response body:\n\n")
	body := formatBody(result.Text, opts.JQ)
	if opts.Truncate {
		body = truncateBody(body)
	}
	for line := range strings.SplitSeq(body, "\n") {
		str.WriteString(gray.Render(line))
		str.WriteByte('\n')
	}
	str.WriteByte('\n')
	return str.String()
}

func formatBody(body string, jq string) string {
	if jq != "" {
		filtered, err := runner.FilterBody(jq, body)
		if err != nil {
			return fmt.Sprintf("jq: %v\n%s", err, body)
		}
		return filtered
	}
	contentType := http.DetectContentType([]byte(body))
	if contentType != "application/json" && !strings.HasPrefix(contentType, "text/") {
		return fmt.Sprintf("Binary %s body", contentType)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(body), "", "  "); err == nil {
		return pretty.String()
	}
	return body
}

func truncateBody(body string) string {
	const maxLines, maxRunes = 32, 5120
	var out strings.Builder
	i := 0
	runeCount := 0
	for line := range strings.SplitSeq(body, "\n") {
		if i >= maxLines || runeCount >= maxRunes {
			out.WriteString("\n... output truncated")
			break
		}
		if i > 0 {
			out.WriteByte('\n')
		}
		runeCount += utf8.RuneCountInString(line)
		out.WriteString(line)
		i++
	}
	return out.String()
}

// SummaryTable lists every result with its outcome and timing.
func SummaryTable(entries []Entry) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle("Test runs")
	t.AppendHeader(table.Row{"#", "Test", "URL path", "Took (ms)", "Result"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "URL path", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Took (ms)", Align: text.AlignRight},
	})

	passed, failed := 0, 0
	for _, e := range entries {
		status := "pass"
		if e.Result.Success {
			passed++
		} else {
			status = "fail"
			failed++
		}
		t.AppendRow(table.Row{e.Index + 1, e.Name, e.Result.Config.URLPath, formatMillis(e.Result.ExecutionTime), status})
	}
	t.AppendFooter(table.Row{"", "", "", "Passed", passed})
	t.AppendFooter(table.Row{"", "", "", "Failed", failed})
	t.Render()
	return buf.String()
}

// Plain strips terminal escape sequences, for output written to files.
func Plain(s string) string {
	return stripansi.Strip(s)
}
