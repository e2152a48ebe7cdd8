package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Recipe struct {
	gorm.Model
	Name            string              `gorm:"not null" json:"name"`
	Description     string              `gorm:"type:text" json:"description"`
	Servings        int                 `gorm:"not null;default:1" json:"servings"`
	WastePercentage decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"waste_percentage"`
	Items           []RecipeItem        `gorm:"foreignKey:RecipeID" json:"items"`
}
