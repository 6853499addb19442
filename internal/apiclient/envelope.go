package apiclient

import (
	"strings"

	"github.com/tidwall/gjson"
)

// unwrap returns the payload of a response body. The backend answers either
// with a bare JSON document or with the {code, message, data, timestamp}
// envelope; only the latter is peeled, exactly once.
func unwrap(raw []byte) []byte {
	if !gjson.ValidBytes(raw) {
		return raw
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return raw
	}
	data := root.Get("data")
	if !data.Exists() || !root.Get("code").Exists() {
		return raw
	}
	if !root.Get("message").Exists() && !root.Get("timestamp").Exists() {
		return raw
	}
	if data.Type == gjson.Null {
		return nil
	}
	return []byte(data.Raw)
}

// errorDetail extracts a human readable message from an error body.
// FastAPI validation errors carry "detail" as an array of {msg}.
func errorDetail(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		s := strings.TrimSpace(string(raw))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	root := gjson.ParseBytes(raw)
	if d := root.Get("detail"); d.Exists() {
		if d.IsArray() {
			var msgs []string
			d.ForEach(func(_, v gjson.Result) bool {
				if m := v.Get("msg"); m.Exists() {
					msgs = append(msgs, m.String())
				}
				return true
			})
			return strings.Join(msgs, "; ")
		}
		return d.String()
	}
	if m := root.Get("message"); m.Exists() {
		return m.String()
	}
	return ""
}
