package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ingredient is a purchasable raw material. CurrentCost is always the
// monetary cost of one base unit (gram, milliliter or unit), regardless of
// the display unit the kitchen works in.
type Ingredient struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Unit        string `gorm:"not null;default:'GRAM'" json:"unit"`

	CurrentCost     decimal.Decimal     `gorm:"type:decimal(14,6);not null;default:0" json:"current_cost"`
	WastePercentage decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"waste_percentage"`

	// Last purchase metadata, kept for audit/display only. The quantity is
	// stored converted to base units.
	LastPurchaseQuantity decimal.NullDecimal `gorm:"type:decimal(14,3)" json:"last_purchase_quantity"`
	LastPurchaseCost     decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"last_purchase_cost"`
	LastPurchaseUnit     *string             `json:"last_purchase_unit,omitempty"`

	CostHistory []IngredientCostHistory `gorm:"foreignKey:IngredientID" json:"cost_history,omitempty"`
}
