package token

import (
	"github.com/smallbiznis/relaypay/internal/token/repository"
	"github.com/smallbiznis/relaypay/internal/token/service"
	"go.uber.org/fx"
)

var Module = fx.Module("token.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewLedger),
	fx.Provide(service.New),
)
