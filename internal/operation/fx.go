package operation

import "go.uber.org/fx"

var Module = fx.Module("operation",
	fx.Provide(NewAckRunner),
)
