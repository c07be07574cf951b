package ddns

import "encoding/json"

// Outcome codes reported to callers. None of these are faults.
const (
	CodeInvalidIP        = "invalid-ip"
	CodeProviderError    = "provider-error"
	CodeAuthError        = "auth-error"
	CodePermissionDenied = "permission-denied"
)

// NotEnabledCode returns "ipv4-not-enabled" or "ipv6-not-enabled".
func NotEnabledCode(t RecordType) string {
	return t.Family() + "-not-enabled"
}

// Outcome is the structured result of an update.
type Outcome struct {
	Success bool
	Changed bool
	Error   string
	Message string
}

func unchanged() Outcome { return Outcome{Success: true} }

func changed() Outcome { return Outcome{Success: true, Changed: true} }

func failure(code, message string) Outcome {
	return Outcome{Error: code, Message: message}
}

// Result returns the metric label of the outcome.
func (o Outcome) Result() string {
	switch {
	case !o.Success:
		return o.Error
	case o.Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// MarshalJSON encodes {success, changed?, error?, message?}; changed is only
// present on success.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type wire struct {
		Success bool   `json:"success"`
		Changed *bool  `json:"changed,omitempty"`
		Error   string `json:"error,omitempty"`
		Message string `json:"message,omitempty"`
	}
	w := wire{Success: o.Success, Error: o.Error, Message: o.Message}
	if o.Success {
		c := o.Changed
		w.Changed = &c
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var w struct {
		Success bool   `json:"success"`
		Changed bool   `json:"changed"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*o = Outcome{Success: w.Success, Changed: w.Changed, Error: w.Error, Message: w.Message}
	return nil
}
