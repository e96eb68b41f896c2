package server

import (
	"github.com/subgate/subgate/internal/billing"
	"github.com/subgate/subgate/internal/cryptopay"
	"github.com/subgate/subgate/internal/entitlement"
	"github.com/subgate/subgate/internal/invoice"
	"github.com/subgate/subgate/internal/operation"
	"github.com/subgate/subgate/internal/user"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	cryptopay.Module,
	user.Module,
	entitlement.Module,
	invoice.Module,
	billing.Module,
	operation.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)
