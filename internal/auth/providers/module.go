package providers

import "go.uber.org/fx"

// Module provides the Graph API client as the Provider
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewFacebookProvider,
			fx.As(new(Provider)),
		),
	),
)
