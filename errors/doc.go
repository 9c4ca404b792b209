// Package errors provides the structured error type used across gfnkit.
//
// Every failure carries a machine-readable ErrorCode. Codes are grouped into
// the kinds callers branch on: validation (caller mistakes detected before any
// graph is touched), resolution (a name that cannot be found), collision (an
// import that would duplicate a name), and I/O (archive read/write).
// Nothing in gfnkit retries; the kind tells the caller what has to change.
package errors
