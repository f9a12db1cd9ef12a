package chain

import (
	"github.com/smallbiznis/relaypay/internal/chain/repository"
	"github.com/smallbiznis/relaypay/internal/chain/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chain.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
