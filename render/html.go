package render

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	api "github.com/apitester/runtests/client"
)

// templateFuncs are shared by the result block and the report page.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// escape marks text as safe after running it through EscapeHTML,
		// so existing entities are kept instead of double-escaped.
		"escape": func(s string) template.HTML {
			return template.HTML(EscapeHTML(s))
		},
		"millis": formatMillis,
	}
}

const resultBlockHTML = `{{define "result"}}<div class="alert alert-{{if .Result.Success}}success{{else}}danger{{end}}">` +
	`<div class="row"><div class="col-xs-10 col-sm-11">` +
	`{{escape .Result.Config.Summary}}<br />{{escape .Result.Config.URLPath}}<br />Took {{millis .Result.ExecutionTime}} ms<br />` +
	`{{if not .Result.Success}}<ul>{{range .Result.Messages}}<li>{{escape .}}</li>{{end}}</ul>{{end}}` +
	`</div><div class="col-xs-2 col-sm-1">` +
	`{{if .Result.Success}}<button type="button" class="btn btn-xs btn-success pull-right" data-toggle="collapse" data-target="#{{.ID}}" aria-expanded="false">` +
	`<span class="glyphicon glyphicon-chevron-right"></span><span class="glyphicon glyphicon-chevron-down"></span></button>{{end}}` +
	`</div></div>` +
	`{{if .Result.Success}}<div id="{{.ID}}" class="collapse"><pre>{{escape .Result.Text}}</pre></div>{{else}}<pre>{{escape .Result.Text}}</pre>{{end}}` +
	`</div>{{end}}`

var resultTemplate = template.Must(template.New("blocks").Funcs(templateFuncs()).Parse(resultBlockHTML))

type resultBlockData struct {
	ID     string
	Result api.TestResult
}

// ResultBlock renders one result the way it is appended to a runner's
// result area: passes collapsed behind a toggle, failures expanded with
// their messages listed.
func ResultBlock(index int, result api.TestResult) (string, error) {
	var b strings.Builder
	if err := writeResultBlock(&b, index, result); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeResultBlock(w io.Writer, index int, result api.TestResult) error {
	return resultTemplate.ExecuteTemplate(w, "result", resultBlockData{
		ID:     BlockID(index, result.Config.OperationID),
		Result: result,
	})
}

// BlockID builds the DOM id a collapse toggle targets. Operation ids are
// shared between replicas, so the runner index keeps ids unique.
func BlockID(index int, operationID string) string {
	var b strings.Builder
	b.WriteString("result-")
	b.WriteString(strconv.Itoa(index))
	if operationID != "" {
		b.WriteByte('-')
	}
	for _, r := range operationID {
		switch {
		case r == '-' || r == '_',
			'0' <= r && r <= '9',
			'a' <= r && r <= 'z',
			'A' <= r && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

func formatMillis(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64)
}

// Entry is one rendered result together with the runner it belongs to.
type Entry struct {
	Index  int
	Name   string
	Result api.TestResult
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://maxcdn.bootstrapcdn.com/bootstrap/3.3.7/css/bootstrap.min.css">
<style>
.btn[aria-expanded="false"] .glyphicon-chevron-down, .btn[aria-expanded="true"] .glyphicon-chevron-right { display: none; }
</style>
</head>
<body>
<div class="container">
<h1>{{.Title}}</h1>
<p>{{.Passed}} passed, {{.Failed}} failed</p>
{{range .Entries}}<div class="runner"><h4>{{.Name}}</h4><div class="result">{{template "result" .Block}}</div></div>
{{end}}</div>
<script src="https://code.jquery.com/jquery-3.7.1.min.js"></script>
<script src="https://maxcdn.bootstrapcdn.com/bootstrap/3.3.7/js/bootstrap.min.js"></script>
</body>
</html>
`

var reportTemplate = template.Must(template.Must(resultTemplate.Clone()).New("report").Parse(reportHTML))

type reportEntry struct {
	Name  string
	Block resultBlockData
}

// WriteReport writes a standalone HTML page with every result block.
func WriteReport(w io.Writer, title string, entries []Entry) error {
	data := struct {
		Title   string
		Passed  int
		Failed  int
		Entries []reportEntry
	}{Title: title}

	for _, e := range entries {
		if e.Result.Success {
			data.Passed++
		} else {
			data.Failed++
		}
		data.Entries = append(data.Entries, reportEntry{
			Name:  e.Name,
			Block: resultBlockData{ID: BlockID(e.Index, e.Result.Config.OperationID), Result: e.Result},
		})
	}
	if err := reportTemplate.ExecuteTemplate(w, "report", data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
