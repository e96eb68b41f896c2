package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/subgate/subgate/internal/clock"
	"github.com/subgate/subgate/internal/config"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
	"github.com/subgate/subgate/internal/observability"
	"github.com/subgate/subgate/internal/scheduler"
	"github.com/subgate/subgate/internal/server"
	userdomain "github.com/subgate/subgate/internal/user/domain"
	"github.com/subgate/subgate/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,
		scheduler.Module,
		fx.Invoke(migrate),
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func migrate(dbConn *gorm.DB) error {
	return dbConn.AutoMigrate(
		&userdomain.User{},
		&entitlementdomain.Entitlement{},
		&invoicedomain.Invoice{},
	)
}
