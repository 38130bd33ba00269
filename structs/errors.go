package provision815

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBusy is returned when an action is requested while another remote call
// for the same workflow run is still outstanding.
var ErrBusy = errors.New("another request is already in flight")

// ValidationError is raised locally before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// TransportError wraps a network or decode failure talking to the backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DomainError is a business failure reported by the backend itself, carried
// with the backend message verbatim.
type DomainError struct {
	Message   string
	Condition DomainCondition
}

func (e *DomainError) Error() string {
	return e.Message
}

// DomainCondition classifies known backend failure messages so the caller
// can tell conditions that need a different operator action apart from
// generic failures.
type DomainCondition string

const (
	ConditionNone DomainCondition = ""
	// ConditionSerialNotFound means the equipment serial was not in the
	// zone's available-equipment list - the operator should go back to
	// resource selection instead of retrying provisioning.
	ConditionSerialNotFound DomainCondition = "SerialNotFound"
	ConditionGeneric        DomainCondition = "Generic"
)

// Classify maps a backend failure message to a known domain condition.  The
// backend reports in Spanish or English depending on the subsystem.
func Classify(message string) DomainCondition {
	if message == "" {
		return ConditionGeneric
	}
	m := strings.ToLower(message)
	if strings.Contains(m, "serial") &&
		(strings.Contains(m, "not found") ||
			strings.Contains(m, "no se encuentra") ||
			strings.Contains(m, "no encontrado") ||
			strings.Contains(m, "no existe")) {
		return ConditionSerialNotFound
	}
	return ConditionGeneric
}
