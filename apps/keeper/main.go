package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaypay/internal/authorization"
	"github.com/smallbiznis/relaypay/internal/bridge"
	"github.com/smallbiznis/relaypay/internal/chain"
	"github.com/smallbiznis/relaypay/internal/charge"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/config"
	"github.com/smallbiznis/relaypay/internal/events"
	"github.com/smallbiznis/relaypay/internal/keeper"
	"github.com/smallbiznis/relaypay/internal/observability"
	"github.com/smallbiznis/relaypay/internal/plan"
	"github.com/smallbiznis/relaypay/internal/product"
	"github.com/smallbiznis/relaypay/internal/subscription"
	"github.com/smallbiznis/relaypay/internal/token"
	"github.com/smallbiznis/relaypay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		authorization.Module,
		events.Module,

		// Domain services required by the charge engine
		token.Module,
		chain.Module,
		bridge.Module,
		product.Module,
		plan.Module,
		charge.Module,
		subscription.Module,

		// No server module!
		keeper.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
