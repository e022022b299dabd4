package payment

import "errors"

// Provider error codes.
const (
	CodeRejected     = "PROVIDER_REJECTED"
	CodeUnreachable  = "PROVIDER_UNREACHABLE"
	CodeBadResponse  = "PROVIDER_BAD_RESPONSE"
	CodeNotSupported = "NOT_SUPPORTED"
	CodeCancelled    = "USER_CANCELLED"
)

// ProviderError is a failure reported by (or on behalf of) a provider
// adapter. Error returns the bare message so it travels unchanged into
// the outcome and the ledger's error detail.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// Rejected wraps a provider's own rejection message.
func Rejected(msg string) *ProviderError {
	return &ProviderError{Code: CodeRejected, Message: msg}
}

// Unreachable marks a transport failure talking to the provider.
func Unreachable(msg string) *ProviderError {
	return &ProviderError{Code: CodeUnreachable, Message: msg}
}

// BadResponse marks an unparseable provider response.
func BadResponse(msg string) *ProviderError {
	return &ProviderError{Code: CodeBadResponse, Message: msg}
}

// NotSupported marks a wallet capability missing on the client.
func NotSupported(provider string) *ProviderError {
	return &ProviderError{Code: CodeNotSupported, Message: provider + " not supported"}
}

// Cancelled marks a wallet sheet dismissed by the user.
func Cancelled() *ProviderError {
	return &ProviderError{Code: CodeCancelled, Message: "user cancelled"}
}

// AsProviderError unwraps err into a ProviderError if it carries one.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Code == CodeCancelled
}

// IsNotSupported reports whether err is a missing wallet capability.
func IsNotSupported(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Code == CodeNotSupported
}
