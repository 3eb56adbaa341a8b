package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64          `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuditMixin records who touched a row. Filled by the GORM audit
// callbacks from the request context, never used for access control.
type AuditMixin struct {
	CreatedBy int64 `gorm:"index" json:"created_by"`
	UpdatedBy int64 `gorm:"index" json:"updated_by"`
}
