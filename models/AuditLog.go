package models

import "gorm.io/gorm"

// AuditLog records who changed what. OldValue/NewValue hold JSON snapshots
// of the affected row.
type AuditLog struct {
	gorm.Model
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	Action   string `gorm:"not null" json:"action"`
	Module   string `gorm:"not null;index" json:"module"`
	EntityID uint   `gorm:"not null" json:"entity_id"`
	OldValue string `gorm:"type:text" json:"old_value,omitempty"`
	NewValue string `gorm:"type:text" json:"new_value,omitempty"`
}
