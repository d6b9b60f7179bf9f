package permissions

import "time"

// Action names a capability a Permission can grant.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Permission holds one user's action flags for one module.
type Permission struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Module    string    `json:"module"`
	Read      bool      `json:"read"`
	Write     bool      `json:"write"`
	Update    bool      `json:"update"`
	Delete    bool      `json:"delete"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Allows reports whether p grants action. Unknown actions are denied.
func (p Permission) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return p.Read
	case ActionWrite:
		return p.Write
	case ActionUpdate:
		return p.Update
	case ActionDelete:
		return p.Delete
	default:
		return false
	}
}

// Flags is the writable part of a Permission.
type Flags struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}
