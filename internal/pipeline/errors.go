package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes pipeline failures.
type ErrorCode string

const (
	// CodeLoad means the input was missing, truncated or malformed.
	CodeLoad ErrorCode = "LOAD"

	// CodePassNotFound means no registered pass has the requested name.
	CodePassNotFound ErrorCode = "PASS_NOT_FOUND"

	// CodeVerify means the transformed module failed verification.
	CodeVerify ErrorCode = "VERIFY"

	// CodePass means a pass other than the verifier failed.
	CodePass ErrorCode = "PASS"

	// CodeWrite means the output could not be written.
	CodeWrite ErrorCode = "WRITE"
)

// Error is returned by every Transform failure. All codes are fatal for the
// invocation.
type Error struct {
	Code  ErrorCode
	Input string
	Pass  string
	Err   error
}

func (e *Error) Error() string {
	switch e.Code {
	case CodePassNotFound:
		return fmt.Sprintf("tmlink: cannot find pass %q", e.Pass)
	case CodeLoad:
		return fmt.Sprintf("tmlink: cannot load %s: %v", e.Input, e.Err)
	case CodeVerify:
		return fmt.Sprintf("tmlink: %s failed verification: %v", e.Input, e.Err)
	case CodePass:
		return fmt.Sprintf("tmlink: %s: %v", e.Input, e.Err)
	default:
		return fmt.Sprintf("tmlink: %s: %v", e.Code, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsPassNotFound reports whether err is a pass lookup failure.
func IsPassNotFound(err error) bool { return hasCode(err, CodePassNotFound) }

// IsLoadError reports whether err is an input load failure.
func IsLoadError(err error) bool { return hasCode(err, CodeLoad) }

// IsVerifyError reports whether err is a verification failure.
func IsVerifyError(err error) bool { return hasCode(err, CodeVerify) }
