package client

import "errors"

var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrUnknownMessage = errors.New("unknown message id")
	ErrNotRetryable   = errors.New("message is not in a retryable state")
	ErrNotSignedIn    = errors.New("not signed in")
)
