package events

import (
	"github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/events/repository"
	"github.com/smallbiznis/relaypay/internal/events/service"
	"go.uber.org/fx"
)

var Module = fx.Module("events.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) domain.Emitter { return svc }),
)
