package cryptopay

import "go.uber.org/fx"

var Module = fx.Module("cryptopay.client",
	fx.Provide(NewClient),
)
