package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Preparation is a sub-recipe (stock, sauce, dough) that recipes and other
// preparations can reference by the serving. Yield is how many servings one
// full execution of the item list produces.
type Preparation struct {
	gorm.Model
	Name            string              `gorm:"not null" json:"name"`
	Description     string              `gorm:"type:text" json:"description"`
	Yield           int                 `gorm:"not null;default:1" json:"yield"`
	WastePercentage decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"waste_percentage"`
	Items           []PreparationItem   `gorm:"foreignKey:PreparationID" json:"items"`
}
