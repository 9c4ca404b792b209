package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Kind returns the kind of the error's code.
func (e *AppError) Kind() Kind { return KindOf(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// --- Constructors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// ArityMismatch reports that the left unit's outputs do not line up with the right unit's inputs.
func ArityMismatch(left, right string, outputs, inputs int) *AppError {
	return &AppError{
		Code: ErrCodeArityMismatch,
		Message: fmt.Sprintf("graph function link %s -> %s requires compatible layers (%d outputs, %d inputs)",
			left, right, outputs, inputs),
		Details: map[string]any{"left": left, "right": right, "outputs": outputs, "inputs": inputs},
	}
}

// UnsupportedTopology reports a merge that is not a linear chain of single-input units.
func UnsupportedTopology(scope string, inputs int) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedTopology,
		Message: fmt.Sprintf("only single input/output intermediary units can be chained; %s declares %d inputs", scope, inputs),
		Details: map[string]any{"scope": scope, "inputs": inputs},
	}
}

// NotPlaceholder reports an input endpoint that is not a placeholder node.
func NotPlaceholder(name, op string) *AppError {
	return &AppError{
		Code:    ErrCodeNotPlaceholder,
		Message: fmt.Sprintf("input %q must be a Placeholder, got %s", name, op),
		Details: map[string]any{"name": name, "op": op},
	}
}

// MalformedArchive reports a persisted container without the required fields.
func MalformedArchive(path string, missing []string) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedArchive,
		Message: fmt.Sprintf("archive %s is missing fields: %s", path, strings.Join(missing, ", ")),
		Details: map[string]any{"path": path, "missing": missing},
	}
}

// NotFound reports a name that does not resolve in the target graph.
func NotFound(resource, name string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("cannot locate %s %q in the graph", resource, name),
		Details: map[string]any{"resource": resource, "name": name},
	}
}

// AlreadyExists reports a name that is already present in the target graph.
func AlreadyExists(name string) *AppError {
	return &AppError{
		Code:    ErrCodeAlreadyExists,
		Message: fmt.Sprintf("a node named %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// IO wraps a failed read or write of a persisted container.
func IO(op, path string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeIO,
		Message: fmt.Sprintf("%s %s failed", op, path),
		Details: map[string]any{"operation": op, "path": path},
		Cause:   cause,
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause}
}

// --- Inspection ---

// AsAppError extracts the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func isKind(err error, kind Kind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind() == kind
}

// IsValidation reports whether err is a caller mistake detected before side effects.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsResolution reports whether err is a name that could not be resolved.
func IsResolution(err error) bool { return isKind(err, KindResolution) }

// IsCollision reports whether err is a name collision.
func IsCollision(err error) bool { return isKind(err, KindCollision) }

// IsIO reports whether err is a persisted container read or write failure.
func IsIO(err error) bool { return isKind(err, KindIO) }
