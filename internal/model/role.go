package model

import "fmt"

// Role is the coarse permission class carried by an actor's token.
type Role string

// Role codes as constants
const (
	RoleSeller Role = "seller"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleSeller, RoleStaff, RoleAdmin, RoleSystem:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is whoever asked for an operation. System-generated work has an
// actor with RoleSystem and an empty ID.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// SystemActor is used for events raised without a human request.
var SystemActor = Actor{Name: "system", Role: RoleSystem}

func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// RecordedID is the id stored on ledger rows; nil for system events.
func (a Actor) RecordedID() *string {
	if a.ID == "" || a.Role == RoleSystem {
		return nil
	}
	id := a.ID
	return &id
}

// AuditName is what goes into created_by/updated_by columns.
func (a Actor) AuditName() string {
	if a.ID != "" {
		return a.ID
	}
	return string(RoleSystem)
}

// transitionRoles says who may move a product into each target status.
var transitionRoles = map[ProductStatus][]Role{
	StatusListing:   {RoleSeller, RoleStaff, RoleAdmin},
	StatusOrdered:   {RoleStaff, RoleAdmin, RoleSystem},
	StatusSold:      {RoleStaff, RoleAdmin, RoleSystem},
	StatusCompleted: {RoleStaff, RoleAdmin, RoleSystem},
	StatusDelivered: {RoleStaff, RoleAdmin, RoleSystem},
	StatusCancelled: {RoleSeller, RoleAdmin},
}

var defaultTransitionRoles = []Role{RoleStaff, RoleAdmin}

// CanTransition reports whether the actor's role may request target.
func (a Actor) CanTransition(target ProductStatus) bool {
	roles, ok := transitionRoles[target]
	if !ok {
		roles = defaultTransitionRoles
	}
	return a.Is(roles...)
}
