package auth

import (
	"errors"
	"net/http"
)

const (
	CSRFCookieName    = "csrftoken"
	SessionCookieName = "sessionid"
	CSRFHeaderName    = "X-CSRFToken"
	// CSRFFormField is the form field Django's CSRF middleware reads.
	CSRFFormField = "csrfmiddlewaretoken"
)

// GetCSRFToken extracts the CSRF token from the Set-Cookie headers of a
// response.
// Example:
// Set-Cookie: csrftoken=abc123; Path=/; SameSite=Lax
func GetCSRFToken(headers http.Header) (string, error) {
	resp := http.Response{Header: headers}
	for _, c := range resp.Cookies() {
		if c.Name != CSRFCookieName {
			continue
		}
		if c.Value == "" {
			return "", errors.New("empty csrf cookie")
		}
		return c.Value, nil
	}
	return "", errors.New("no csrf cookie")
}

// Apply attaches the session cookie and the CSRF token to an outgoing
// request. Empty values are skipped.
func Apply(r *http.Request, sessionID, csrfToken string) {
	if sessionID != "" {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	}
	if csrfToken != "" {
		r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: csrfToken})
		r.Header.Set(CSRFHeaderName, csrfToken)
	}
}
