// Package errors provides structured error handling for logtab.
// It implements coded errors with context and stack traces.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code identifies an error category for programmatic handling.
type Code string

const (
	// Container errors (1xx)
	CodeInvalidFormat   Code = "E101" // not a valid datalog file
	CodeMalformedRecord Code = "E102" // start/finish record cannot be parsed
	CodeFileNotFound    Code = "E103"

	// Decode errors (2xx)
	CodeUnknownSchema   Code = "E201" // struct: type with no resolvable schema
	CodeMalformedSchema Code = "E202" // schema text segment has no type/name pair
	CodeSchemaRedefined Code = "E203" // schema name redefined with different fields
	CodeMalformedJSON   Code = "E204" // json entry payload failed to parse
	CodeColumnCollision Code = "E205" // entry name collides with a fixed column

	// Output errors (3xx)
	CodeNoRecords   Code = "E301" // conversion produced zero rows
	CodeWriteFailed Code = "E302"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"
	CodeCheckpoint      Code = "E402"

	// DuckDB errors (5xx)
	CodeDuckDBInit  Code = "E501"
	CodeDuckDBQuery Code = "E502"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for all logtab errors.
type Error struct {
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

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
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
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// captureStack captures the current stack trace.
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
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// InvalidFormat creates an invalid container format error.
func InvalidFormat(path string, reason string) *Error {
	return New(CodeInvalidFormat, "not a valid datalog file").
		WithContext("path", path).
		WithContext("reason", reason)
}

// MalformedRecord creates a malformed control record error.
func MalformedRecord(kind string, entry uint32, cause error) *Error {
	return Wrap(cause, CodeMalformedRecord, "malformed "+kind+" record").
		WithContext("entry", entry)
}

// UnknownSchema creates an unresolved struct schema error.
func UnknownSchema(typeName string) *Error {
	return New(CodeUnknownSchema, "no schema found").
		WithContext("type", typeName)
}

// MalformedSchema creates a schema declaration parse error.
func MalformedSchema(schemaName, segment string) *Error {
	return New(CodeMalformedSchema, "schema segment has no type/name pair").
		WithContext("schema", schemaName).
		WithContext("segment", segment)
}

// SchemaRedefined creates a conflicting schema redefinition error.
func SchemaRedefined(schemaName string) *Error {
	return New(CodeSchemaRedefined, "schema redefined with different fields").
		WithContext("schema", schemaName)
}

// NoRecords creates an empty result set error.
func NoRecords(input string) *Error {
	return New(CodeNoRecords, "no valid records to write").
		WithContext("input", input)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
