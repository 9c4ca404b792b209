package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeArityMismatch indicates adjacent units disagree on output/input count.
	ErrCodeArityMismatch ErrorCode = "ARITY_MISMATCH"
	// ErrCodeUnsupportedTopology indicates a merge that is not a linear chain.
	ErrCodeUnsupportedTopology ErrorCode = "UNSUPPORTED_TOPOLOGY"
	// ErrCodeNotPlaceholder indicates an input endpoint that is not a placeholder.
	ErrCodeNotPlaceholder ErrorCode = "NOT_PLACEHOLDER"
	// ErrCodeMalformedArchive indicates a persisted container missing required fields.
	ErrCodeMalformedArchive ErrorCode = "MALFORMED_ARCHIVE"
)

// Graph errors
const (
	// ErrCodeNotFound indicates a name that does not resolve in the target graph.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates an import or node that would duplicate a name.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Infrastructure errors
const (
	// ErrCodeIO indicates an unreadable or unwritable container.
	ErrCodeIO ErrorCode = "IO_ERROR"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Kind groups error codes by what the caller has to do about them.
type Kind string

const (
	KindValidation Kind = "validation"
	KindResolution Kind = "resolution"
	KindCollision  Kind = "collision"
	KindIO         Kind = "io"
	KindInternal   Kind = "internal"
)

var codeKinds = map[ErrorCode]Kind{
	ErrCodeInvalidInput:        KindValidation,
	ErrCodeMissingField:        KindValidation,
	ErrCodeArityMismatch:       KindValidation,
	ErrCodeUnsupportedTopology: KindValidation,
	ErrCodeNotPlaceholder:      KindValidation,
	ErrCodeMalformedArchive:    KindValidation,
	ErrCodeNotFound:            KindResolution,
	ErrCodeAlreadyExists:       KindCollision,
	ErrCodeIO:                  KindIO,
	ErrCodeInternal:            KindInternal,
}

// KindOf returns the kind of the given code. Unknown codes are internal.
func KindOf(code ErrorCode) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindInternal
}
