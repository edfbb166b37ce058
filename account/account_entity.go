package account

import "github.com/fundwit/go-commons/types"

type User struct {
	ID     types.ID `json:"id"`
	Name   string   `json:"name" gorm:"unique_index"`
	Secret string   `json:"-"`

	Nickname string `json:"nickname"`
}

// JobAssignment is a position held by a user. ManagerID references the user managing this position.
type JobAssignment struct {
	ID        types.ID `json:"id"`
	UserID    types.ID `json:"userId" gorm:"index"`
	Name      string   `json:"name"`
	ManagerID types.ID `json:"managerId"`
}

// UserCapability grants a capability to a user within a scope. Scope is an assignment id or "*".
type UserCapability struct {
	ID         types.ID `json:"id"`
	UserID     types.ID `json:"userId" gorm:"unique_index:uni_user_cap_scope"`
	Capability string   `json:"capability" gorm:"unique_index:uni_user_cap_scope"`
	Scope      string   `json:"scope" gorm:"unique_index:uni_user_cap_scope"`
}

type UserCreation struct {
	Name     string `json:"name" binding:"required,lte=32"`
	Secret   string `json:"secret" binding:"required,gte=6,lte=32"`
	Nickname string `json:"nickname" binding:"omitempty,gte=1,lte=32"`
}

func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

func Models() []interface{} {
	return []interface{}{&User{}, &JobAssignment{}, &UserCapability{}}
}
