package auth

import (
	"errors"
	"fmt"
)

// Kind identifies why a token or request was rejected.
type Kind string

const (
	KindAuthHeaderMissing     Kind = "AuthHeaderMissing"
	KindAuthHeaderMalformed   Kind = "AuthHeaderMalformed"
	KindAuthenticationFailed  Kind = "AuthenticationFailed"
	KindInsufficientPrivilege Kind = "InsufficientPrivilege"
	KindAlreadySessionToken   Kind = "AlreadySessionToken"

	KindSignatureInvalid  Kind = "SignatureInvalid"
	KindIssuerMismatch    Kind = "IssuerMismatch"
	KindAudienceMismatch  Kind = "AudienceMismatch"
	KindExpired           Kind = "Expired"
	KindNotYetValid       Kind = "NotYetValid"
	KindUnknownKey        Kind = "UnknownKey"
	KindMalformedToken    Kind = "MalformedToken"
	KindKeySetUnavailable Kind = "KeySetUnavailable"
	KindMissingClaim      Kind = "MissingClaim"
	KindWrongTokenType    Kind = "WrongTokenType"
)

// Stage is a step of the request authorization pipeline.
type Stage string

const (
	StageUnauthenticated      Stage = "unauthenticated"
	StageTokenExtracted       Stage = "token_extracted"
	StageClassified           Stage = "classified"
	StageVerified             Stage = "verified"
	StageAuthorizationChecked Stage = "authorization_checked"
	StageAdmitted             Stage = "admitted"
)

var messages = map[Kind]string{
	KindAuthHeaderMissing:     "authorization header is required",
	KindAuthHeaderMalformed:   "authorization header must be 'Bearer <token>'",
	KindAuthenticationFailed:  "authentication failed",
	KindInsufficientPrivilege: "admin access required",
	KindAlreadySessionToken:   "token is already a session token",
	KindSignatureInvalid:      "token signature is invalid",
	KindIssuerMismatch:        "token issuer is not accepted",
	KindAudienceMismatch:      "token audience is not accepted",
	KindExpired:               "token has expired",
	KindNotYetValid:           "token is not valid yet",
	KindUnknownKey:            "token signing key is unknown",
	KindMalformedToken:        "token is malformed",
	KindKeySetUnavailable:     "signing keys are unavailable",
	KindMissingClaim:          "token is missing a required claim",
	KindWrongTokenType:        "token type is not accepted",
}

// Error is the rejection returned by every verifier and by the authorizer.
// Stage is the pipeline step at which the rejection was raised; verifiers
// leave it empty.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := messages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the client-safe description of the error. It never includes
// the wrapped cause.
func (e *Error) Message() string {
	if inner := e.inner(); inner != nil {
		return messages[e.Kind] + ": " + inner.Message()
	}
	if msg, ok := messages[e.Kind]; ok {
		return msg
	}
	return string(e.Kind)
}

// Reason returns the most specific kind in the chain, so an
// AuthenticationFailed wrapping Expired reports Expired.
func (e *Error) Reason() Kind {
	if inner := e.inner(); inner != nil {
		return inner.Reason()
	}
	return e.Kind
}

func (e *Error) inner() *Error {
	var inner *Error
	if e.Err != nil && errors.As(e.Err, &inner) {
		return inner
	}
	return nil
}

// KindOf returns the Kind of the outermost *Error in err, or "" when err
// carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the most specific Kind in err, or "" when err carries none.
func ReasonOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason()
	}
	return ""
}
