package charge

import (
	"github.com/smallbiznis/relaypay/internal/charge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("charge.engine",
	fx.Provide(service.New),
)
