package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PreparationItem mirrors RecipeItem for preparation-owned lines. The
// nested reference may point at another preparation, which is how
// preparations compose recursively.
type PreparationItem struct {
	gorm.Model
	PreparationID uint            `gorm:"not null;index" json:"preparation_id"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Note          string          `json:"note"`

	IngredientID     *uint `json:"ingredient_id,omitempty"`
	SubPreparationID *uint `json:"sub_preparation_id,omitempty"`

	Ingredient     *Ingredient  `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	SubPreparation *Preparation `gorm:"foreignKey:SubPreparationID" json:"sub_preparation,omitempty"`
}
