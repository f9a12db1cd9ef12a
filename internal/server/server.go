package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	catalogdomain "github.com/smallbiznis/relaypay/internal/catalog/domain"
	chaindomain "github.com/smallbiznis/relaypay/internal/chain/domain"
	chargedomain "github.com/smallbiznis/relaypay/internal/charge/domain"
	"github.com/smallbiznis/relaypay/internal/config"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/observability"
	obsmiddleware "github.com/smallbiznis/relaypay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/relaypay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/relaypay/internal/observability/tracing"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

type EngineConfig struct {
	Debug       bool
	HTTPMetrics *obsmetrics.HTTPMetrics
}

func NewEngine(cfg EngineConfig) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Debug,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{}))
	r.Use(cfg.HTTPMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(EngineConfig{Debug: obsCfg.Debug(), HTTPMetrics: httpMetrics})
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	tokenSvc        tokendomain.Service
	chainSvc        chaindomain.Service
	bridgeSvc       bridgedomain.Service
	productSvc      productdomain.Service
	planSvc         plandomain.Service
	catalogSvc      catalogdomain.Service
	subscriptionSvc subscriptiondomain.Service
	charges         chargedomain.Engine
	eventsSvc       eventsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	TokenSvc        tokendomain.Service
	ChainSvc        chaindomain.Service
	BridgeSvc       bridgedomain.Service
	ProductSvc      productdomain.Service
	PlanSvc         plandomain.Service
	CatalogSvc      catalogdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Charges         chargedomain.Engine
	EventsSvc       eventsdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		tokenSvc:        p.TokenSvc,
		chainSvc:        p.ChainSvc,
		bridgeSvc:       p.BridgeSvc,
		productSvc:      p.ProductSvc,
		planSvc:         p.PlanSvc,
		catalogSvc:      p.CatalogSvc,
		subscriptionSvc: p.SubscriptionSvc,
		charges:         p.Charges,
		eventsSvc:       p.EventsSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")
	api.Use(CallerAddress())

	// -------- Tokens --------
	api.GET("/tokens", s.ListSupportedTokens)
	api.POST("/tokens", s.AddSupportedToken)
	api.GET("/tokens/:token/balances/:holder", s.GetBalance)
	api.GET("/tokens/:token/allowances/:owner/:spender", s.GetAllowance)
	api.POST("/tokens/:token/mint", s.MintToken)
	api.POST("/tokens/:token/approve", s.ApproveToken)
	api.POST("/tokens/:token/transfer", s.TransferToken)

	// -------- Chains --------
	api.GET("/chains", s.ListChainSelectors)
	api.POST("/chains", s.AddChainSelector)

	// -------- Bridge --------
	api.GET("/bridge/destinations", s.ListDestinations)
	api.PUT("/bridge/destinations/:selector", s.AllowDestination)
	api.DELETE("/bridge/destinations/:selector", s.DisallowDestination)
	api.POST("/bridge/transfers", s.BridgeTransfer)
	api.GET("/bridge/transfers/:messageId", s.GetBridgeTransfer)
	api.POST("/bridge/withdrawals", s.BridgeWithdraw)

	// -------- Products --------
	api.POST("/products", s.CreateProduct)
	api.GET("/products/nonce", s.GetProductNonce)
	api.GET("/products/:id", s.GetProductByID)
	api.PATCH("/products/:id", s.UpdateProduct)
	api.GET("/products/:id/plans", s.ListProductPlans)
	api.GET("/providers/:provider/products", s.ListProviderProducts)

	// -------- Plans --------
	api.POST("/plans", s.CreatePlan)
	api.GET("/plans/nonce", s.GetPlanNonce)
	api.GET("/plans/:id", s.GetPlanByID)
	api.PATCH("/plans/:id", s.UpdatePlan)

	// -------- Catalog --------
	api.POST("/catalog/products", s.CreateProductWithPlans)
	api.POST("/catalog/recurring", s.CreateRecurringSubscription)

	// -------- Subscriptions --------
	api.POST("/subscriptions", s.Subscribe)
	api.GET("/subscribers/:subscriber/subscriptions", s.ListSubscriptions)
	api.GET("/subscribers/:subscriber/subscriptions/nonce", s.GetSubscriptionNonce)
	api.GET("/subscribers/:subscriber/subscriptions/:id", s.GetSubscription)
	api.GET("/subscribers/:subscriber/products/:productId", s.GetSubscribedToProduct)
	api.POST("/subscriptions/:id/unsubscribe", s.UnSubscribe)
	api.POST("/subscriptions/:id/plan", s.ChangeSubscriptionPlan)
	api.POST("/subscriptions/:id/payment-info", s.ChangeSubscriptionPaymentInfo)

	// -------- Charges --------
	api.POST("/subscribers/:subscriber/subscriptions/:id/charge", s.ChargeSubscription)

	// -------- Events --------
	api.GET("/events", s.ListEvents)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
