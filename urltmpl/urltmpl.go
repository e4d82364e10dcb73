package urltmpl

import (
	"regexp"
	"strings"
)

// TestPlaceholder is the token the server puts in precomputed test URLs,
// e.g. /runtests/run/all.
const TestPlaceholder = "all"

const (
	KeyMethod      = "method"
	KeyURLPath     = "urlpath"
	KeyConfigPK    = "config_pk"
	KeyOperationID = "operation_id"
)

var tokenRe = regexp.MustCompile(`\{([^}]+)\}`)

// Substitute replaces the first occurrence of placeholder in template with
// value. The rest of the template is left untouched.
func Substitute(template, placeholder, value string) string {
	if placeholder == "" {
		return template
	}
	return strings.Replace(template, placeholder, value, 1)
}

// Expand replaces every {key} token in template with vars[key]. Tokens
// without a matching key are kept as-is.
func Expand(template string, vars map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(template, func(m string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(m, "{"), "}")
		if val, ok := vars[key]; ok {
			return val
		}
		return m
	})
}

// RunPath builds the run endpoint path for one runner. urlpath is inserted
// raw, slashes included, the way the server's route expects it.
func RunPath(template, method, urlpath, configPK, operationID string) string {
	return Expand(template, map[string]string{
		KeyMethod:      method,
		KeyURLPath:     urlpath,
		KeyConfigPK:    configPK,
		KeyOperationID: operationID,
	})
}

// Index returns the index URL for a test configuration. An empty pk gives
// the bare index.
func Index(template, configPK string) string {
	if configPK == "" {
		return template
	}
	return template + configPK
}

// Join glues a base URL and a path without doubling the slash between them.
func Join(base, path string) string {
	if base == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
