package api

import (
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
)

// HTTPError is a non-2xx response from the gateway.
type HTTPError struct {
	StatusCode int
	Status     string
	Path       string
	// Detail is the server's explanation, taken from a JSON "detail" field
	// when present and the raw body otherwise.
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upload rejected: %s", e.Status)
	}
	return fmt.Sprintf("upload rejected: %s: %s", e.Status, e.Detail)
}

// IsConflict reports whether err is a 409 from the gateway, which it returns
// when a folder with the same name already exists.
func IsConflict(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == nethttp.StatusConflict
}

func newHTTPError(resp *nethttp.Response, path string, body []byte) *HTTPError {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, nethttp.StatusText(resp.StatusCode))
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     status,
		Path:       path,
		Detail:     parseDetail(body),
	}
}

// parseDetail understands FastAPI error bodies: {"detail": "text"} and
// {"detail": [{"loc": [...], "msg": "text"}, ...]}.
func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return truncate(trimmed, 300)
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				loc := make([]string, len(it.Loc))
				for i, l := range it.Loc {
					loc[i] = fmt.Sprint(l)
				}
				msgs = append(msgs, fmt.Sprintf("%s: %s", strings.Join(loc, "."), it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return truncate(string(envelope.Detail), 300)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
