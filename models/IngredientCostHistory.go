package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IngredientCostHistory is an append-only ledger of cost changes. A row is
// written when an ingredient is created and whenever its cost actually
// changes; rows are never updated or deleted, and they outlive the
// soft-deletion of their ingredient.
type IngredientCostHistory struct {
	gorm.Model
	IngredientID uint            `gorm:"not null;index" json:"ingredient_id"`
	Cost         decimal.Decimal `gorm:"type:decimal(14,6);not null" json:"cost"`
	EffectiveAt  time.Time       `gorm:"not null;index" json:"effective_at"`
}
