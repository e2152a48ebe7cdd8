package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecipeItem is one line of a recipe. Quantity is expressed in the base
// unit of whatever the line references.
type RecipeItem struct {
	gorm.Model
	RecipeID uint            `gorm:"not null;index" json:"recipe_id"`
	Quantity decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Note     string          `json:"note"`

	// Exactly one of these is set; a line references either a leaf
	// ingredient or a nested preparation, never both.
	IngredientID  *uint `json:"ingredient_id,omitempty"`
	PreparationID *uint `json:"preparation_id,omitempty"`

	Ingredient  *Ingredient  `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Preparation *Preparation `gorm:"foreignKey:PreparationID" json:"preparation,omitempty"`
}
