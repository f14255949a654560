package specification

import "strings"

// InputType is how the API under test was described when the specification
// was created.
type InputType string

const (
	// InputTypeManual means method, path and request example were typed in.
	InputTypeManual InputType = "MANUAL"
	// InputTypeAPICall means the endpoint was picked from the API call catalog.
	InputTypeAPICall InputType = "API_CALL"
)

func (t InputType) String() string { return string(t) }

// IsValid reports whether t is a known input modality.
func (t InputType) IsValid() bool { return t == InputTypeManual || t == InputTypeAPICall }

// ParseInputType converts a string to an InputType. Unknown values return "".
func ParseInputType(s string) InputType {
	switch t := InputType(strings.ToUpper(strings.TrimSpace(s))); t {
	case InputTypeManual, InputTypeAPICall:
		return t
	default:
		return ""
	}
}
