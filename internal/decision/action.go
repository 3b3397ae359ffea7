package decision

import (
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"go-omnicontrol/pkg/data"
	"strconv"
	"strings"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Kind string

const (
	Click      Kind = "click"
	RightClick Kind = "right_click"
	Type       Kind = "type"
	Scroll     Kind = "scroll"
	Keybind    Kind = "keybind"
	Complete   Kind = "complete"
)

var kinds = map[string]Kind{
	"click":       Click,
	"right_click": RightClick,
	"type":        Type,
	"scroll":      Scroll,
	"keybind":     Keybind,
	"complete":    Complete,
}

// ParseKind accepts the action type case-insensitively; "right click" and "right-click" are
// read as right_click.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if k, ok := kinds[norm]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// NeedsElement reports whether the action targets a detected element.
func (k Kind) NeedsElement() bool {
	switch k {
	case Click, RightClick, Type, Scroll:
		return true
	}
	return false
}

type Action struct {
	Kind      Kind
	ElementID string
	Value     string
	Reasoning string
}

func (a Action) String() string {
	switch {
	case a.Kind == Keybind:
		return fmt.Sprintf("keybind %q", a.Value)
	case a.Kind == Type:
		return fmt.Sprintf("type %q into element %s", a.Value, a.ElementID)
	case a.Kind.NeedsElement():
		return fmt.Sprintf("%s element %s", a.Kind, a.ElementID)
	}
	return string(a.Kind)
}

// Validate checks the fields each kind requires. It runs before any input is synthesized.
func (a Action) Validate() error {
	if _, ok := kinds[string(a.Kind)]; !ok {
		return &ValidationError{Kind: a.Kind, Field: "action_type", Reason: "unknown action type"}
	}
	if a.Kind.NeedsElement() && strings.TrimSpace(a.ElementID) == "" {
		return &ValidationError{Kind: a.Kind, Field: "action_element_id", Reason: "required"}
	}
	if a.Kind == Type && a.Value == "" {
		return &ValidationError{Kind: a.Kind, Field: "value", Reason: "text to type is required"}
	}
	return nil
}

type record struct {
	Reasoning  string `json:"reasoning"`
	ActionType string `json:"action_type"`
	ElementID  any    `json:"action_element_id"`
	Value      any    `json:"value"`
}

// ParseReply decodes a model reply into an Action. The reply must hold a non-empty JSON list;
// only the first record is used.
func ParseReply(reply string) (Action, error) {
	raw, err := data.SanitizeAnswer(reply)
	if err != nil {
		return Action{}, &Error{Reason: "reply is not a list", Err: err}
	}
	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return Action{}, &Error{Reason: "unmarshal reply", Err: err}
	}
	if len(records) == 0 {
		return Action{}, &Error{Reason: "reply is an empty list"}
	}
	r := records[0]
	if strings.TrimSpace(r.ActionType) == "" {
		return Action{}, &Error{Reason: "missing action_type"}
	}
	kind, err := ParseKind(r.ActionType)
	if err != nil {
		return Action{}, &Error{Reason: "invalid action_type", Err: err}
	}
	return Action{
		Kind:      kind,
		ElementID: strings.TrimSpace(scalar(r.ElementID)),
		Value:     scalar(r.Value),
		Reasoning: r.Reasoning,
	}, nil
}

// scalar renders ids the model sent as numbers ("7" and 7 are the same element).
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
