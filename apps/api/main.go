package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaypay/internal/authorization"
	"github.com/smallbiznis/relaypay/internal/bridge"
	"github.com/smallbiznis/relaypay/internal/catalog"
	"github.com/smallbiznis/relaypay/internal/chain"
	"github.com/smallbiznis/relaypay/internal/charge"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/config"
	"github.com/smallbiznis/relaypay/internal/events"
	"github.com/smallbiznis/relaypay/internal/migration"
	"github.com/smallbiznis/relaypay/internal/observability"
	"github.com/smallbiznis/relaypay/internal/plan"
	"github.com/smallbiznis/relaypay/internal/product"
	"github.com/smallbiznis/relaypay/internal/relay"
	"github.com/smallbiznis/relaypay/internal/server"
	"github.com/smallbiznis/relaypay/internal/subscription"
	"github.com/smallbiznis/relaypay/internal/token"
	"github.com/smallbiznis/relaypay/pkg/db"
	"go.uber.org/fx"
)

// The API process serves HTTP and relays events; charging runs in apps/keeper.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		authorization.Module,
		events.Module,

		token.Module,
		chain.Module,
		bridge.Module,
		product.Module,
		plan.Module,
		catalog.Module,
		charge.Module,
		subscription.Module,

		relay.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
