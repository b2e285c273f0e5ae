package constants

const (
	// LoginPath is where unauthenticated requests are redirected.
	LoginPath = "/login"

	// CallbackPath receives the provider's authorization code.
	CallbackPath = "/callback"

	// CodeQueryParam carries the authorization code on the callback.
	CodeQueryParam = "code"

	// AccessTokenField is injected into every stored profile document.
	AccessTokenField = "access_token"

	// CallbackAck is the plaintext body sent once the session cookie is set.
	CallbackAck = "Cookie set."
)
