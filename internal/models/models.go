package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// AdminAccount is an operator allowed to change presets
type AdminAccount struct {
	Phone       string         `db:"phone" json:"phone"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	AllowedIPs  pq.StringArray `db:"allowed_ips" json:"allowed_ips"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the account holds role. The superadmin role holds
// every role.
func (a *AdminAccount) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role || r == "superadmin" {
			return true
		}
	}
	return false
}

// IPAllowed reports whether ip may use the account. An empty list allows any
// address.
func (a *AdminAccount) IPAllowed(ip string) bool {
	if len(a.AllowedIPs) == 0 {
		return true
	}
	for _, allowed := range a.AllowedIPs {
		if allowed == ip {
			return true
		}
	}
	return false
}

// AdminAudit is one recorded admin action
type AdminAudit struct {
	ID         int             `db:"id" json:"id"`
	AdminPhone string          `db:"admin_phone" json:"admin_phone"`
	IP         string          `db:"ip" json:"ip"`
	Route      string          `db:"route" json:"route"`
	Action     string          `db:"action" json:"action"`
	Details    json.RawMessage `db:"details" json:"details"`
	Success    bool            `db:"success" json:"success"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
