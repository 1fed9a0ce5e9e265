package contract

import "errors"

var ErrValidation = errors.New("validation failed")

// FailureCode is the typed outcome taxonomy shared by the verification gate
// and the tool layer. ALREADY_BLOCKED is a success-with-no-op, not an error;
// callers branch on the code.
type FailureCode string

const (
	FailureNotVerified        FailureCode = "NOT_VERIFIED"
	FailureRateLimited        FailureCode = "RATE_LIMITED"
	FailureInvalidCredentials FailureCode = "INVALID_CREDENTIALS"
	FailureInvalidArgument    FailureCode = "INVALID_ARGUMENT"
	FailureNotFound           FailureCode = "NOT_FOUND"
	FailureAlreadyBlocked     FailureCode = "ALREADY_BLOCKED"
	FailureUpstreamTimeout    FailureCode = "UPSTREAM_TIMEOUT"
	FailureAccessorError      FailureCode = "ACCESSOR_ERROR"
)

type Failure struct {
	Code   FailureCode
	Reason string
}

func (f *Failure) Error() string {
	if f.Reason == "" {
		return string(f.Code)
	}
	return string(f.Code) + ": " + f.Reason
}

func NewFailure(code FailureCode, reason string) *Failure {
	return &Failure{Code: code, Reason: reason}
}
