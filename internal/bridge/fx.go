package bridge

import (
	"github.com/smallbiznis/relaypay/internal/bridge/domain"
	"github.com/smallbiznis/relaypay/internal/bridge/repository"
	"github.com/smallbiznis/relaypay/internal/bridge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bridge.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewOutboxRouter),
	fx.Provide(
		func(r *service.OutboxRouter) domain.Router { return r },
		func(r *service.OutboxRouter) domain.Outbox { return r },
	),
	fx.Provide(service.New),
)
