package singleton

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeAccessAfterExit
	ErrCodeConstructorPanicked
	ErrCodeInvalidPolicy
	ErrCodeConfigLoad
	ErrCodeInvalidTraits
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:             "UNKNOWN",
	ErrCodeAccessAfterExit:     "ACCESS_AFTER_EXIT",
	ErrCodeConstructorPanicked: "CONSTRUCTOR_PANICKED",
	ErrCodeInvalidPolicy:       "INVALID_POLICY",
	ErrCodeConfigLoad:          "CONFIG_LOAD",
	ErrCodeInvalidTraits:       "INVALID_TRAITS",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error is the value Get panics with on misuse, and the error returned by
// configuration helpers.
type Error struct {
	Code    ErrorCode
	Message string
	Slot    string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Slot != "" {
		b.WriteString(fmt.Sprintf(" slot=%q:", e.Slot))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithSlot(slot string) *Error {
	e.Slot = slot
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errAccessAfterExit(slot string) *Error {
	return newError(
		ErrCodeAccessAfterExit,
		"instance accessed after its exit callback destroyed it",
		nil,
	).WithSlot(slot)
}

func errConstructorPanicked(slot string, recovered any) *Error {
	return newError(
		ErrCodeConstructorPanicked,
		fmt.Sprintf("constructor panicked: %v", recovered),
		nil,
	).WithSlot(slot)
}

func errInvalidPolicy(slot string, cause error) *Error {
	return newError(ErrCodeInvalidPolicy, "cannot use wait policy", cause).WithSlot(slot)
}

func errInvalidTraits(slot string) *Error {
	return newError(ErrCodeInvalidTraits, "traits must not be nil", nil).WithSlot(slot)
}

func errConfigLoad(path string, cause error) *Error {
	return newError(ErrCodeConfigLoad, fmt.Sprintf("failed to load wait policy from %s", path), cause)
}

// hasCode reports whether any *Error in err's chain carries code.
func hasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

func IsAccessAfterExit(err error) bool {
	return hasCode(err, ErrCodeAccessAfterExit)
}

func IsInvalidPolicy(err error) bool {
	return hasCode(err, ErrCodeInvalidPolicy)
}

func IsConfigLoad(err error) bool {
	return hasCode(err, ErrCodeConfigLoad)
}

func IsInvalidTraits(err error) bool {
	return hasCode(err, ErrCodeInvalidTraits)
}
