package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/identity"
)

// ErrAccessDenied signals that the realm scoping guard or a capability check
// rejected the caller. Transport maps it to 403 without naming the missing
// permission.
var ErrAccessDenied = errors.New("access denied")

// Op names a gated operation.
type Op string

const (
	OpUploadFile Op = "file.upload"
	OpViewFile   Op = "file.view"
	OpDeleteFile Op = "file.delete"

	OpAnalyzeFood  Op = "analysis.analyze"
	OpViewAnalysis Op = "analysis.view"

	OpCreatePrompt Op = "prompt.create"
	OpViewPrompt   Op = "prompt.view"
	OpUpdatePrompt Op = "prompt.update"
	OpDeletePrompt Op = "prompt.delete"

	OpRecordReaction Op = "reaction.record"
	OpViewReactions  Op = "reaction.view"
	OpViewStats      Op = "stats.view"

	OpViewDevice Op = "device.view"
)

var (
	writeSet = NewPermissions(PermissionManageRealm, PermissionManageWebhooks)
	readSet  = NewPermissions(PermissionManageRealm, PermissionManageWebhooks, PermissionViewWebhooks)
)

// whitelists maps each operation to the permissions that grant it; one match
// suffices. Read whitelists are supersets of their write counterparts, and
// view/analyze pairs are deliberate aliases.
var whitelists = map[Op]Permissions{
	OpUploadFile: writeSet,
	OpViewFile:   readSet,
	OpDeleteFile: writeSet,

	OpAnalyzeFood:  readSet,
	OpViewAnalysis: readSet,

	OpCreatePrompt: writeSet,
	OpViewPrompt:   readSet,
	OpUpdatePrompt: writeSet,
	OpDeletePrompt: writeSet,

	OpRecordReaction: writeSet,
	OpViewReactions:  readSet,
	OpViewStats:      readSet,

	OpViewDevice: readSet,
}

// Ops lists every gated operation.
func Ops() []Op {
	out := make([]Op, 0, len(whitelists))
	for op := range whitelists {
		out = append(out, op)
	}
	return out
}

// Whitelist exposes the permission whitelist for an operation.
func Whitelist(op Op) (Permissions, bool) {
	wl, ok := whitelists[op]
	return wl, ok
}

// Lookup computes the effective permission grants a user holds in a realm.
// Implemented by the role store.
type Lookup interface {
	PermissionsFor(ctx context.Context, userID, realmID uuid.UUID) (Permissions, error)
}

// Engine answers capability questions for a resolved identity against a
// target realm.
type Engine struct {
	realms identity.RealmStore
	users  identity.UserStore
	lookup Lookup
}

// NewEngine builds an engine over the given collaborators.
func NewEngine(realms identity.RealmStore, users identity.UserStore, lookup Lookup) *Engine {
	return &Engine{realms: realms, users: users, lookup: lookup}
}

// effective resolves the permission set of a user against a target realm.
// Grants held in the target realm always count; a user whose home realm is
// master additionally contributes their master-realm grants.
func (e *Engine) effective(ctx context.Context, user identity.User, target identity.Realm) (Permissions, error) {
	perms, err := e.lookup.PermissionsFor(ctx, user.ID, target.ID)
	if err != nil {
		return 0, err
	}
	if user.RealmID == target.ID {
		return perms, nil
	}
	home, err := e.realms.GetRealmByID(ctx, user.RealmID)
	if err != nil {
		return 0, err
	}
	if home.Name == identity.MasterRealm {
		homePerms, err := e.lookup.PermissionsFor(ctx, user.ID, home.ID)
		if err != nil {
			return 0, err
		}
		perms = perms.Union(homePerms)
	}
	return perms, nil
}

// Can reports whether the identity may perform op against the target realm.
// Lookup failures propagate; access is never granted on error.
func (e *Engine) Can(ctx context.Context, ident identity.Identity, target identity.Realm, op Op) (bool, error) {
	wl, ok := whitelists[op]
	if !ok {
		return false, fmt.Errorf("unknown operation %q", op)
	}
	user, err := e.users.GetUserByID(ctx, ident.ID())
	if err != nil {
		return false, err
	}
	perms, err := e.effective(ctx, user, target)
	if err != nil {
		return false, err
	}
	return perms.Intersects(wl), nil
}

// Capabilities evaluates every gated operation for the identity, returning a
// map of operation name to verdict. Permission names are never exposed.
func (e *Engine) Capabilities(ctx context.Context, ident identity.Identity, target identity.Realm) (map[string]bool, error) {
	user, err := e.users.GetUserByID(ctx, ident.ID())
	if err != nil {
		return nil, err
	}
	perms, err := e.effective(ctx, user, target)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(whitelists))
	for op, wl := range whitelists {
		out[string(op)] = perms.Intersects(wl)
	}
	return out, nil
}

// Named wrappers for the feature areas that gate on the engine.

func (e *Engine) CanUploadFile(ctx context.Context, ident identity.Identity, realm identity.Realm) (bool, error) {
	return e.Can(ctx, ident, realm, OpUploadFile)
}

func (e *Engine) CanViewFile(ctx context.Context, ident identity.Identity, realm identity.Realm) (bool, error) {
	return e.Can(ctx, ident, realm, OpViewFile)
}

func (e *Engine) CanDeleteFile(ctx context.Context, ident identity.Identity, realm identity.Realm) (bool, error) {
	return e.Can(ctx, ident, realm, OpDeleteFile)
}

func (e *Engine) CanAnalyzeFood(ctx context.Context, ident identity.Identity, realm identity.Realm) (bool, error) {
	return e.Can(ctx, ident, realm, OpAnalyzeFood)
}

func (e *Engine) CanViewAnalysis(ctx context.Context, ident identity.Identity, realm identity.Realm) (bool, error) {
	return e.Can(ctx, ident, realm, OpViewAnalysis)
}

func (e *Engine) CanCreatePrompt(ctx context.Context, ident identity.Identity, realm identity.Realm) (bool, error) {
	return e.Can(ctx, ident, realm, OpCreatePrompt)
}

func (e *Engine) CanViewPrompt(ctx context.Context, ident identity.Identity, realm identity.Realm) (bool, error) {
	return e.Can(ctx, ident, realm, OpViewPrompt)
}

// EnsureRealmAccess is the realm scoping guard: the caller's home realm must
// be the target realm itself, or the distinguished master realm.
func EnsureRealmAccess(callerRealm, target identity.Realm) error {
	if callerRealm.ID == target.ID || callerRealm.Name == identity.MasterRealm {
		return nil
	}
	return ErrAccessDenied
}

// GetRealmByName is the policy-aware realm resolution used once an identity
// is known: resolve the realm, then apply the scoping guard against the
// caller's home realm.
func (e *Engine) GetRealmByName(ctx context.Context, ident identity.Identity, name string) (identity.Realm, error) {
	target, err := e.realms.GetRealmByName(ctx, name)
	if err != nil {
		return identity.Realm{}, err
	}
	user, err := e.users.GetUserByID(ctx, ident.ID())
	if err != nil {
		return identity.Realm{}, err
	}
	home, err := e.realms.GetRealmByID(ctx, user.RealmID)
	if err != nil {
		return identity.Realm{}, err
	}
	if err := EnsureRealmAccess(home, target); err != nil {
		return identity.Realm{}, err
	}
	return target, nil
}
