package account

import "context"

// Role is the access level of a restaurant staff account.
type Role string

const (
	RoleOwner    Role = "Owner"
	RoleEmployee Role = "Employee"
	RoleGuest    Role = "Guest"
)

// CanCreateGroup reports whether the role may open group conversations.
func (r Role) CanCreateGroup() bool {
	return r == RoleOwner
}

// CanChat reports whether accounts with this role may be added to conversations.
func (r Role) CanChat() bool {
	return r == RoleOwner || r == RoleEmployee
}

// SeesAllEvents reports whether the role sees every calendar event regardless
// of assignment.
func (r Role) SeesAllEvents() bool {
	return r == RoleOwner
}

// Account is a staff identity referenced by conversations and calendar events.
type Account struct {
	ID     uint
	Name   string
	Email  string
	Avatar *string
	Role   Role
}

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role Role
}

type Repository interface {
	FindByID(ctx context.Context, id uint) (*Account, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*Account, error)
}
