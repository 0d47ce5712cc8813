package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a customer job posting that businesses apply to.
type Project struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`
	Title      string    `gorm:"column:title;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Offer is a business's application to a project; one per (business, project).
type Offer struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID `gorm:"column:business_id;type:uuid;not null"`
	ProjectID  uuid.UUID `gorm:"column:project_id;type:uuid;not null"`
	Message    string    `gorm:"column:message"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
