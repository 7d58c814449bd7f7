package policy

import (
	"fmt"
	"strings"
)

// ErrorType categorizes declaration errors.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML/JSON could not be decoded
	ErrorTypeStructural ErrorType = "structural" // missing or invalid required fields
)

// DeclError is a single error in a policy declaration. Declaration errors
// are fatal and caller-visible, unlike compile warnings and legacy notes,
// which degrade.
type DeclError struct {
	Type     ErrorType
	PolicyID string
	Message  string
}

// Error implements the error interface.
func (e *DeclError) Error() string {
	if e.PolicyID != "" {
		return fmt.Sprintf("[%s] policy %q: %s", e.Type, e.PolicyID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// DeclErrorList accumulates declaration errors so a single pass reports
// every problem instead of stopping at the first.
type DeclErrorList struct {
	Errors []*DeclError
}

// Add appends a new error.
func (l *DeclErrorList) Add(errType ErrorType, policyID, message string) {
	l.Errors = append(l.Errors, &DeclError{Type: errType, PolicyID: policyID, Message: message})
}

// HasErrors returns true when the list is non-empty.
func (l *DeclErrorList) HasErrors() bool {
	return len(l.Errors) > 0
}

// Error implements the error interface.
func (l *DeclErrorList) Error() string {
	if len(l.Errors) == 1 {
		return l.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d declaration errors:", len(l.Errors))
	for _, e := range l.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// ErrOrNil returns the list as an error, or nil when it is empty.
func (l *DeclErrorList) ErrOrNil() error {
	if l.HasErrors() {
		return l
	}
	return nil
}
