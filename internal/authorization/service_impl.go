package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/config"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an enforcer whose policies persist through the gorm adapter.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without a policy store.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) RequireOwner(ctx context.Context, caller common.Address, object string) error {
	if evm.IsZero(caller) {
		return ErrOnlyOwner
	}
	allowed, err := s.enforcer.Enforce(subjectFor(caller), strings.TrimSpace(object), ActionAdmin)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("owner check denied",
			zap.String("caller", caller.Hex()),
			zap.String("object", object),
		)
		return ErrOnlyOwner
	}
	return nil
}

func (s *ServiceImpl) IsOwner(ctx context.Context, caller common.Address) (bool, error) {
	return s.enforcer.HasRoleForUser(subjectFor(caller), RoleOwner)
}

func (s *ServiceImpl) GrantOwner(ctx context.Context, account common.Address) error {
	if evm.IsZero(account) {
		return ErrOnlyOwner
	}
	has, err := s.enforcer.HasGroupingPolicy(subjectFor(account), RoleOwner)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	if _, err := s.enforcer.AddGroupingPolicy(subjectFor(account), RoleOwner); err != nil {
		return err
	}
	s.log.Info("owner granted", zap.String("account", account.Hex()))
	return nil
}

func (s *ServiceImpl) RevokeOwner(ctx context.Context, account common.Address) error {
	_, err := s.enforcer.RemoveGroupingPolicy(subjectFor(account), RoleOwner)
	return err
}

func subjectFor(account common.Address) string {
	return "account:" + strings.ToLower(account.Hex())
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{RoleOwner, ObjectBridge, ActionAdmin},
		{RoleOwner, ObjectToken, ActionAdmin},
		{RoleOwner, ObjectChain, ActionAdmin},
	}
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

// GrantConfiguredOwner gives the configured owner address the owner role at startup.
func GrantConfiguredOwner(lc fx.Lifecycle, svc Service, chainCfg *config.ChainConfigHolder, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			owner := chainCfg.Get().Owner
			if evm.IsZero(owner) {
				log.Warn("chain.owner not configured; owner-only routes will reject every caller")
				return nil
			}
			return svc.GrantOwner(ctx, owner)
		},
	})
}
