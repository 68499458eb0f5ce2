package errors

import (
	"encoding/json"
)

// JSONOutput represents the JSON structure for error output
type JSONOutput struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Phase  string `json:"phase"`
	Error  string `json:"error"`
	Detail any    `json:"detail,omitempty"`
}

// FormatAsJSON renders err as indented JSON. Errors from this package
// include their structured fields under "detail".
func FormatAsJSON(err error) (string, error) {
	out := JSONOutput{Status: "error", Error: err.Error()}
	if coded, ok := err.(Coded); ok {
		out.Code = coded.Code()
		out.Phase = Phase(coded.Code())
		out.Detail = coded
	}
	data, mErr := json.MarshalIndent(out, "", "  ")
	if mErr != nil {
		return "", mErr
	}
	return string(data), nil
}
