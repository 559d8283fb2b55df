package auth

import (
	"context"
	"strings"

	"menuservice/internal/model"
)

type policyKind int

const (
	policyAnyOf policyKind = iota + 1
	policyOwnerOrAdmin
)

// OwnerResolver loads the owning user id of a resource. It returns an error
// wrapping ErrNotFound when the resource does not exist.
type OwnerResolver interface {
	OwnerOf(ctx context.Context, id string) (uint, error)
}

// Policy is an authorization requirement evaluated against the attached user.
// Build one with AnyOf or OwnerOrAdmin.
type Policy struct {
	kind     policyKind
	roles    []model.Role
	resource string
	owners   OwnerResolver
	param    string
}

// AnyOf admits users whose role is one of roles.
func AnyOf(roles ...model.Role) Policy {
	return Policy{kind: policyAnyOf, roles: roles}
}

// OwnerOrAdmin admits admins, and otherwise the user that owns the resource
// whose id is in the route parameter param ("id" when empty).
func OwnerOrAdmin(resource string, owners OwnerResolver, param string) Policy {
	if param == "" {
		param = "id"
	}
	return Policy{kind: policyOwnerOrAdmin, resource: resource, owners: owners, param: param}
}

// Param is the route parameter carrying the resource id.
func (p Policy) Param() string {
	return p.param
}

func (p Policy) admits(role model.Role) bool {
	for _, r := range p.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Policy) roleList() string {
	names := make([]string, len(p.roles))
	for i, r := range p.roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
