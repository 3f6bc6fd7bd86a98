package models

import "errors"

/* The error namespace follows result-style returns throughout the library.
 * Every error that crosses the bridge boundary wraps exactly one of these
 * sentinels so the numeric code can be recovered from any chain. */

var (
	ErrInvalid   = errors.New("invalid argument")
	ErrNoMem     = errors.New("allocation failure")
	ErrNotFound  = errors.New("not found")
	ErrExists    = errors.New("already exists")
	ErrDimension = errors.New("vector dimension mismatch")
	ErrIO        = errors.New("storage error")
	ErrCorrupt   = errors.New("structural corruption")
)

// Numeric codes of the library error namespace.
const (
	CodeOK = iota
	CodeInvalid
	CodeNoMem
	CodeNotFound
	CodeExists
	CodeDimension
	CodeIO
	CodeCorrupt
)

// ErrorCode maps an error chain to its numeric code. Unrecognised errors
// count as storage errors because the only unwrapped failures left are host
// primitive ones.
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalid):
		return CodeInvalid
	case errors.Is(err, ErrNoMem):
		return CodeNoMem
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrExists):
		return CodeExists
	case errors.Is(err, ErrDimension):
		return CodeDimension
	case errors.Is(err, ErrCorrupt):
		return CodeCorrupt
	default:
		return CodeIO
	}
}
