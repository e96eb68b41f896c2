package entitlement

import (
	"github.com/subgate/subgate/internal/entitlement/repository"
	"github.com/subgate/subgate/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
