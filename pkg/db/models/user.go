package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
)

// User is the account row; only the columns the clip ledger reads or flips are mapped.
type User struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string                     `gorm:"column:name;not null"`
	Email         string                     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Role          enums.Role                 `gorm:"column:role;type:user_role;not null"`
	IsActive      bool                       `gorm:"column:is_active;not null"`
	PlanAssigned  bool                       `gorm:"column:plan_assigned;not null;default:false"`
	PaymentStatus enums.AccountPaymentStatus `gorm:"column:payment_status;type:account_payment_status;not null;default:'pending'"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// CanSpendClips reports whether the account passes the activation gate for applying to projects.
func (u *User) CanSpendClips() bool {
	if u == nil {
		return false
	}
	return u.IsActive &&
		u.Role == enums.RoleBusiness &&
		u.PlanAssigned &&
		u.PaymentStatus == enums.AccountPaymentReceived
}
