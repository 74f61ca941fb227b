package types

import (
	uuid "github.com/gofrs/uuid"
)

// UserContext is the verified identity of the caller, resolved from the access
// token. The display fields are whatever the identity provider signed at token
// issue time; they are copied into posts, likes and comments as snapshots.
type UserContext struct {
	UserID    uuid.UUID `json:"uid"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Avatar    string    `json:"avatar"`
}

// IsAuthenticated reports whether the context carries a real user id.
func (u UserContext) IsAuthenticated() bool {
	return u.UserID != uuid.Nil
}
