package protocol

import "fmt"

// Failure codes surfaced to clients. Anything not in this taxonomy reaches
// the wire as CodeInternal.
const (
	CodeValidation         = "VALIDATION"
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidInvite      = "INVALID_INVITE"
	CodeInviteExhausted    = "INVITE_EXHAUSTED"
	CodeHandleTaken        = "HANDLE_TAKEN"
	CodeInvalidSession     = "INVALID_SESSION"
	CodeNotFound           = "NOT_FOUND"
	CodeNotAMember         = "NOT_A_MEMBER"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL"
)

// Failure is a typed handler error that maps one-to-one onto an error
// envelope. Services return these for expected outcomes; plain errors are
// treated as internal.
type Failure struct {
	Code    string
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func Failf(code, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotAMember carries the exact text the reference client string-matches to
// trigger its automatic channel.join retry. Keep the wording stable.
func NotAMember(channelId string) *Failure {
	return &Failure{Code: CodeNotAMember, Message: fmt.Sprintf("Not a member of channel %s", channelId)}
}
