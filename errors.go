package pqcfips

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable error code for a recoverable module failure.
type ErrorKind string

const (
	KindInvalidKeyLength     ErrorKind = "INVALID_KEY_LENGTH"
	KindVerificationFailure  ErrorKind = "VERIFICATION_FAILURE"
	KindDecapsulationFailure ErrorKind = "DECAPSULATION_FAILURE"
	KindAEADOperationFailed  ErrorKind = "AEAD_OPERATION_FAILED"
	KindConsistencyFailure   ErrorKind = "CONSISTENCY_FAILURE"
	KindSelfTestFailure      ErrorKind = "SELF_TEST_FAILURE"
	KindModuleNotInitialized ErrorKind = "MODULE_NOT_INITIALIZED"
	KindSelfTestInProgress   ErrorKind = "SELF_TEST_IN_PROGRESS"
	KindModuleErrorState     ErrorKind = "MODULE_ERROR_STATE"
	KindExportBlocked        ErrorKind = "EXPORT_BLOCKED"
)

// Error is a recoverable module failure. Two errors match under errors.Is
// when their kinds are equal, so a detailed error still matches its sentinel.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := "pqcfips: " + kindMessages[e.Kind]
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

var kindMessages = map[ErrorKind]string{
	KindInvalidKeyLength:     "invalid key length",
	KindVerificationFailure:  "verification failure",
	KindDecapsulationFailure: "decapsulation failure",
	KindAEADOperationFailed:  "AEAD operation failed",
	KindConsistencyFailure:   "pair-wise consistency test failed",
	KindSelfTestFailure:      "self-test failed",
	KindModuleNotInitialized: "module not initialized",
	KindSelfTestInProgress:   "self-test in progress",
	KindModuleErrorState:     "module in error state",
	KindExportBlocked:        "plaintext CSP export blocked",
}

var (
	ErrInvalidKeyLength     = &Error{Kind: KindInvalidKeyLength}
	ErrVerificationFailure  = &Error{Kind: KindVerificationFailure}
	ErrDecapsulationFailure = &Error{Kind: KindDecapsulationFailure}
	ErrAEADOperationFailed  = &Error{Kind: KindAEADOperationFailed}
	ErrConsistencyFailure   = &Error{Kind: KindConsistencyFailure}
	ErrSelfTestFailure      = &Error{Kind: KindSelfTestFailure}
	ErrModuleNotInitialized = &Error{Kind: KindModuleNotInitialized}
	ErrSelfTestInProgress   = &Error{Kind: KindSelfTestInProgress}
	ErrModuleErrorState     = &Error{Kind: KindModuleErrorState}
	ErrExportBlocked        = &Error{Kind: KindExportBlocked}
)

// NewError returns an error of the given kind annotated with the failing operation.
func NewError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf extracts the ErrorKind from err.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// InvariantViolation is raised as a panic value for programming errors that
// can never describe legitimate input, such as an all-zero seed. It is not
// an *Error and matches none of the recoverable kinds.
type InvariantViolation struct {
	Reason string
}

func (v *InvariantViolation) Error() string {
	return "pqcfips: invariant violation: " + v.Reason
}

// ErrZeroSeed is the invariant violation raised for an all-zero seed.
var ErrZeroSeed = &InvariantViolation{Reason: "all-zero seed"}

// MustNonZeroSeed panics with ErrZeroSeed when every byte of seed is zero.
func MustNonZeroSeed(seed []byte) {
	var acc byte
	for _, b := range seed {
		acc |= b
	}
	if acc == 0 {
		panic(ErrZeroSeed)
	}
}

// lengthError reports an unexpected input length.
func lengthError(op string, got, want int) *Error {
	return NewError(KindInvalidKeyLength, op, fmt.Errorf("got %d bytes, want %d", got, want))
}

// CheckLength returns an InvalidKeyLength error when len(b) != want.
func CheckLength(op string, b []byte, want int) error {
	if len(b) != want {
		return lengthError(op, len(b), want)
	}
	return nil
}
