package models

import "errors"

var (
	// ErrMissingParameter means the callback was invoked without a code.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrProvider covers transport failures and non-2xx answers from the provider.
	ErrProvider = errors.New("provider error")

	// ErrMalformedResponse means the provider answered with an unexpected body.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrPersistence means the profile could not be stored.
	ErrPersistence = errors.New("persistence error")
)
