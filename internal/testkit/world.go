// Package testkit wires every service against an in-memory sqlite database
// for cross-package tests.
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/authorization"
	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	bridgerepo "github.com/smallbiznis/relaypay/internal/bridge/repository"
	bridgeservice "github.com/smallbiznis/relaypay/internal/bridge/service"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	catalogdomain "github.com/smallbiznis/relaypay/internal/catalog/domain"
	catalogservice "github.com/smallbiznis/relaypay/internal/catalog/service"
	chaindomain "github.com/smallbiznis/relaypay/internal/chain/domain"
	chainrepo "github.com/smallbiznis/relaypay/internal/chain/repository"
	chainservice "github.com/smallbiznis/relaypay/internal/chain/service"
	chargedomain "github.com/smallbiznis/relaypay/internal/charge/domain"
	chargeservice "github.com/smallbiznis/relaypay/internal/charge/service"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/config"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	eventsrepo "github.com/smallbiznis/relaypay/internal/events/repository"
	eventsservice "github.com/smallbiznis/relaypay/internal/events/service"
	"github.com/smallbiznis/relaypay/internal/migration"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	planrepo "github.com/smallbiznis/relaypay/internal/plan/repository"
	planservice "github.com/smallbiznis/relaypay/internal/plan/service"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	productrepo "github.com/smallbiznis/relaypay/internal/product/repository"
	productservice "github.com/smallbiznis/relaypay/internal/product/service"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/relaypay/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/relaypay/internal/subscription/service"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
	tokenrepo "github.com/smallbiznis/relaypay/internal/token/repository"
	tokenservice "github.com/smallbiznis/relaypay/internal/token/service"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	RemoteChainID  uint64       = 43113
	RemoteSelector evm.Selector = 14767482510784806043
)

var (
	Owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	Provider = common.HexToAddress("0x1000000000000000000000000000000000000001")
	Alice    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	Bob      = common.HexToAddress("0x3000000000000000000000000000000000000003")
	USDC     = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")

	RemoteBaseFee   = decimal.NewFromInt(1_000)
	RemoteNativeFee = decimal.NewFromInt(2_000)

	// Start is the default clock position for a new world.
	Start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

type World struct {
	DB       *gorm.DB
	Clock    *clock.FakeClock
	ChainCfg *config.ChainConfigHolder
	Log      *zap.Logger

	Authz         authorization.Service
	Events        eventsdomain.Service
	Ledger        tokendomain.Ledger
	Tokens        tokendomain.Service
	Chains        chaindomain.Service
	Router        *bridgeservice.OutboxRouter
	Bridge        bridgedomain.Service
	Products      productdomain.Service
	Plans         plandomain.Service
	Catalog       catalogdomain.Service
	Charges       chargedomain.Engine
	Subscriptions subscriptiondomain.Service

	SubscriptionRepo subscriptiondomain.Repository
}

func ChainConfig() config.ChainConfig {
	cfg := config.DefaultChainConfig()
	cfg.Owner = Owner
	cfg.Destinations = []config.DestinationFee{
		{Selector: RemoteSelector, BaseFee: RemoteBaseFee, NativeFee: RemoteNativeFee},
	}
	return cfg
}

// New builds a fresh world; USDC is registered as a supported token.
func New(t *testing.T) *World {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	w := &World{
		DB:       conn,
		Clock:    clock.NewFakeClock(Start),
		ChainCfg: config.NewStaticChainConfigHolder(ChainConfig()),
		Log:      zap.NewNop(),
	}

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	w.Authz = authorization.NewService(authorization.Params{Log: w.Log, Enforcer: enforcer})
	require.NoError(t, w.Authz.GrantOwner(context.Background(), Owner))

	w.Events = eventsservice.New(eventsservice.Params{
		DB: conn, Log: w.Log, GenID: node, Clock: w.Clock, Repo: eventsrepo.Provide(),
	})

	tokenRepo := tokenrepo.Provide()
	w.Ledger = tokenservice.NewLedger(tokenservice.LedgerParams{Log: w.Log, Clock: w.Clock, Repo: tokenRepo})
	w.Tokens = tokenservice.New(tokenservice.Params{
		DB: conn, Log: w.Log, Clock: w.Clock, Repo: tokenRepo, Ledger: w.Ledger, Authz: w.Authz, Events: w.Events,
	})

	w.Chains = chainservice.New(chainservice.Params{
		DB: conn, Log: w.Log, Clock: w.Clock, ChainCfg: w.ChainCfg, Repo: chainrepo.Provide(), Authz: w.Authz, Events: w.Events,
	})

	bridgeRepo := bridgerepo.Provide()
	w.Router = bridgeservice.NewOutboxRouter(bridgeservice.RouterParams{
		DB: conn, Log: w.Log, GenID: node, Clock: w.Clock, ChainCfg: w.ChainCfg, Repo: bridgeRepo,
	})
	w.Bridge = bridgeservice.New(bridgeservice.Params{
		DB: conn, Log: w.Log, Clock: w.Clock, ChainCfg: w.ChainCfg, Repo: bridgeRepo,
		Router: w.Router, Ledger: w.Ledger, Authz: w.Authz, Events: w.Events,
	})

	productRepo := productrepo.Provide()
	planRepo := planrepo.Provide()
	w.SubscriptionRepo = subscriptionrepo.Provide()

	w.Products = productservice.New(productservice.Params{
		DB: conn, Log: w.Log, Clock: w.Clock, Repo: productRepo, Ledger: w.Ledger,
		Chains: w.Chains, Bridge: w.Bridge, Events: w.Events,
	})
	w.Plans = planservice.New(planservice.Params{
		DB: conn, Log: w.Log, Clock: w.Clock, Repo: planRepo, ProductRepo: productRepo, Events: w.Events,
	})
	w.Catalog = catalogservice.New(catalogservice.Params{
		DB: conn, Log: w.Log, Products: w.Products, Plans: w.Plans,
	})
	w.Charges = chargeservice.New(chargeservice.Params{
		DB: conn, Log: w.Log, Clock: w.Clock, ChainCfg: w.ChainCfg,
		SubscriptionRepo: w.SubscriptionRepo, PlanRepo: planRepo, ProductRepo: productRepo,
		Ledger: w.Ledger, Chains: w.Chains, Bridge: w.Bridge, Events: w.Events,
	})
	w.Subscriptions = subscriptionservice.New(subscriptionservice.Params{
		DB: conn, Log: w.Log, Clock: w.Clock, Repo: w.SubscriptionRepo, PlanRepo: planRepo,
		ProductRepo: productRepo, Charges: w.Charges, Events: w.Events,
	})

	require.NoError(t, w.Tokens.AddSupportedToken(As(Owner), USDC))
	return w
}

// As returns a context authenticated as caller.
func As(caller common.Address) context.Context {
	return callercontext.WithCaller(context.Background(), caller)
}

func (w *World) Engine() common.Address { return w.ChainCfg.Get().EngineAddress }

func (w *World) BridgeAddress() common.Address { return w.ChainCfg.Get().BridgeAddress }

// Fund mints amount of token to holder; the zero token is native currency.
func (w *World) Fund(t *testing.T, token, holder common.Address, amount int64) {
	t.Helper()
	require.NoError(t, w.DB.Transaction(func(tx *gorm.DB) error {
		return w.Ledger.Mint(context.Background(), tx, token, holder, decimal.NewFromInt(amount))
	}))
}

// ApproveEngine lets the charge engine pull amount of token from holder.
func (w *World) ApproveEngine(t *testing.T, token, holder common.Address, amount int64) {
	t.Helper()
	require.NoError(t, w.Tokens.Approve(As(holder), token, w.Engine(), decimal.NewFromInt(amount)))
}

func (w *World) Balance(t *testing.T, token, holder common.Address) decimal.Decimal {
	t.Helper()
	bal, err := w.Tokens.BalanceOf(context.Background(), token, holder)
	require.NoError(t, err)
	return bal
}

// EnableRemote maps the remote chain to its selector and allows it on the bridge.
func (w *World) EnableRemote(t *testing.T) {
	t.Helper()
	require.NoError(t, w.Chains.AddChainSelector(As(Owner), RemoteChainID, RemoteSelector))
	require.NoError(t, w.Bridge.AddDestinationChainSupport(As(Owner), RemoteSelector))
}

// EventNames lists the names of all logged events, oldest first.
func (w *World) EventNames(t *testing.T) []string {
	t.Helper()
	records, err := w.Events.List(context.Background(), eventsdomain.ListFilter{PageSize: 1000})
	require.NoError(t, err)
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}

const (
	MonthlyPrice    int64 = 100_000
	MonthlyInterval int64 = 2_592_000
)

// CreateMonthly registers a recurring product with one monthly plan owned by
// Provider and paying out on destinationChain.
func (w *World) CreateMonthly(t *testing.T, destinationChain uint64) (*productdomain.Product, *plandomain.Plan) {
	t.Helper()
	res, err := w.Catalog.CreateRecurringSubscription(As(Provider), catalogdomain.CreateRecurringSubscriptionRequest{
		Name:             "Spotify Premium",
		Description:      "Ad-free music",
		LogoURL:          "https://example.com/logo.png",
		Token:            USDC,
		ReceivingAddress: Provider,
		DestinationChain: destinationChain,
		ChargeInterval:   MonthlyInterval,
		Price:            decimal.NewFromInt(MonthlyPrice),
	})
	require.NoError(t, err)
	require.Len(t, res.Plans, 1)
	return res.Product, &res.Plans[0]
}

func (w *World) LocalChainID() uint64 { return w.ChainCfg.Get().LocalChainID }
