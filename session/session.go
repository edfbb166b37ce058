package session

import (
	"approvalflow/authority"
	"context"
	"time"

	"github.com/fundwit/go-commons/types"
)

// Session is the authenticated caller of a request. Context carries the request trace and the definition cache.
type Session struct {
	Context context.Context `json:"-"`

	Token    string                `json:"token"`
	Identity Identity              `json:"identity"`
	Perms    authority.Permissions `json:"perms"`

	SigningTime time.Time `json:"-"`
}

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

func (s Session) Clone() Session {
	if s.Perms != nil {
		perms := make(authority.Permissions, len(s.Perms))
		copy(perms, s.Perms)
		s.Perms = perms
	}
	return s
}

func (s *Session) Ctx() context.Context {
	if s == nil || s.Context == nil {
		return context.Background()
	}
	return s.Context
}
