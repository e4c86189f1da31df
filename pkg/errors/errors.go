// Package errors provides structured errors for the simulator.
// Every hard fault carries a code, the identity of the entity being simulated
// and a short stack trace. Soft invalidity is never reported through here.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Configuration errors (1xx)
	CodeConfigInvalid  Code = "E101"
	CodeConfigLoad     Code = "E102"
	CodeRegistryClosed Code = "E103"

	// Input errors (2xx)
	CodeFileNotFound  Code = "E201"
	CodeInvalidFormat Code = "E202"
	CodeMissingColumn Code = "E203"
	CodeUnknownParcel Code = "E204"

	// Simulation errors (3xx)
	CodeHousehold    Code = "E301"
	CodeHouseholdDay Code = "E302"
	CodePersonDay    Code = "E303"
	CodeTour         Code = "E304"
	CodeSubtour      Code = "E305"
	CodeHalfTour     Code = "E306"
	CodeTrip         Code = "E307"
	CodeModel        Code = "E308"
	CodeInvariant    Code = "E309"

	// Output errors (4xx)
	CodeWriteFailed Code = "E401"
	CodeUpload      Code = "E402"
	CodeCheckpoint  Code = "E403"

	// System errors (5xx)
	CodeContextCanceled Code = "E501"
	CodePanic           Code = "E502"

	// Unknown
	CodeUnknown Code = "E999"
)

// Context keys attached to simulation faults.
const (
	KeyHousehold = "household"
	KeyDay       = "day"
	KeyPerson    = "person"
	KeyTour      = "tour"
	KeySubtour   = "subtour"
	KeyDirection = "direction"
	KeyTrip      = "trip"
	KeyModel     = "model"
)

// SimError is the base error type for the simulator.
type SimError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface. Context keys are printed sorted so
// messages are stable across runs.
func (e *SimError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *SimError) Unwrap() error {
	return e.Cause
}

// Is matches another SimError by code.
func (e *SimError) Is(target error) bool {
	if t, ok := target.(*SimError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *SimError) WithContext(key string, value interface{}) *SimError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ContextValue returns a context value, searching wrapped SimErrors too.
func (e *SimError) ContextValue(key string) (interface{}, bool) {
	var err error = e
	for err != nil {
		var se *SimError
		if !errors.As(err, &se) {
			return nil, false
		}
		if v, ok := se.Context[key]; ok {
			return v, true
		}
		err = se.Cause
	}
	return nil, false
}

// New creates a new SimError.
func New(code Code, message string) *SimError {
	return &SimError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Newf creates a new SimError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *SimError {
	return &SimError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *SimError {
	if err == nil {
		return nil
	}

	return &SimError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *SimError {
	if err == nil {
		return nil
	}
	return &SimError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *SimError) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *SimError {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn creates a missing column error.
func MissingColumn(table, column string) *SimError {
	return New(CodeMissingColumn, "required column not found").
		WithContext("table", table).
		WithContext("column", column)
}

// ContextCanceled creates a cancellation error.
func ContextCanceled(operation string) *SimError {
	return New(CodeContextCanceled, "operation canceled").
		WithContext("operation", operation)
}

// Panic converts a recovered panic value into a SimError.
func Panic(r interface{}) *SimError {
	if err, ok := r.(error); ok {
		return Wrap(err, CodePanic, "panic recovered")
	}
	return New(CodePanic, fmt.Sprintf("panic recovered: %v", r))
}

// --- Error checking utilities ---

// IsCode checks if an error, or any SimError it wraps, has a specific code.
func IsCode(err error, code Code) bool {
	for err != nil {
		var se *SimError
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error.
func GetCode(err error) Code {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// ContextOf returns a context value from the first SimError in the chain
// that carries the key.
func ContextOf(err error, key string) (interface{}, bool) {
	var se *SimError
	if !errors.As(err, &se) {
		return nil, false
	}
	return se.ContextValue(key)
}

// IsFatal returns true if the error should stop the whole run rather than
// one household.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeConfigInvalid, CodeRegistryClosed, CodeWriteFailed, CodeContextCanceled:
		return true
	default:
		return false
	}
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
