package user

import (
	"github.com/subgate/subgate/internal/user/repository"
	"github.com/subgate/subgate/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
