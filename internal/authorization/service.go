package authorization

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/apperror"
)

const (
	ObjectBridge = "bridge"
	ObjectToken  = "token"
	ObjectChain  = "chain"
)

const ActionAdmin = "admin"

const RoleOwner = "role:owner"

var ErrOnlyOwner = apperror.New(apperror.KindAuthorization, "Only callable by owner")

// Service answers owner-only checks for administrative entry points.
type Service interface {
	RequireOwner(ctx context.Context, caller common.Address, object string) error
	IsOwner(ctx context.Context, caller common.Address) (bool, error)
	GrantOwner(ctx context.Context, account common.Address) error
	RevokeOwner(ctx context.Context, account common.Address) error
}
