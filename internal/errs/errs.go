package errs

import "errors"

var ErrUserNotFound = errors.New("user not found")
var ErrInvalidToken = errors.New("invalid token")
var ErrLoginAlreadyExists = errors.New("login already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrNoSession = errors.New("no active session")
var ErrProfileNotFound = errors.New("profile not found")
var ErrGuestNotFound = errors.New("guest credentials not found")
var ErrUnexpectedPayload = errors.New("unexpected provider payload")
var ErrInvalidResponse = errors.New("invalid response from provider API")
var ErrBelowMinimum = errors.New("amount below minimum")
var ErrOrderNotFound = errors.New("order not found")
var ErrUnknownCategory = errors.New("unknown category")
var ErrUnknownService = errors.New("unknown service")
var ErrUnknownMethod = errors.New("unknown payment method")

// ProviderError is a business error reported by the provider in an
// {"error": "..."} payload. Its message is safe to show to the end user.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}
