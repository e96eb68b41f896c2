package invoice

import (
	"github.com/subgate/subgate/internal/invoice/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.ledger",
	fx.Provide(repository.Provide),
)
