package configflow

import "github.com/urmzd/gryfd/pkg/config"

// ResultType tells the client what a step returned.
type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultMenu        ResultType = "menu"
	ResultCreateEntry ResultType = "create_entry"
	ResultAbort       ResultType = "abort"
)

// Kind distinguishes config flows from options flows.
type Kind string

const (
	KindConfig  Kind = "config"
	KindOptions Kind = "options"
)

// Field types.
const (
	FieldString  = "string"
	FieldInteger = "integer"
	FieldBoolean = "boolean"
	FieldSelect  = "select"
)

// Abort reasons.
const (
	AbortAlreadyConfigured = "already_configured"
	AbortAlreadyInProgress = "already_in_progress"
)

// Option is one menu entry or select choice.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one form input.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Default  any      `json:"default,omitempty"`
	Minimum  *int     `json:"minimum,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

// Result is what a flow step hands back to the client.
type Result struct {
	FlowID      string            `json:"flow_id"`
	Handler     string            `json:"handler"`
	Kind        Kind              `json:"kind"`
	Type        ResultType        `json:"type"`
	StepID      string            `json:"step_id,omitempty"`
	DataSchema  []Field           `json:"data_schema,omitempty"`
	MenuOptions []Option          `json:"menu_options,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Title       string            `json:"title,omitempty"`
	EntryID     string            `json:"entry_id,omitempty"`
	Data        *config.EntryData `json:"data,omitempty"`
}

// Done reports whether the flow ended with this result.
func (r *Result) Done() bool {
	return r.Type == ResultCreateEntry || r.Type == ResultAbort
}
