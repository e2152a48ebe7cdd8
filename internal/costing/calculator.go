// Package costing implements the escandallo engine: a recursive walk over
// the recipe/preparation composition graph that turns per-base-unit
// ingredient costs, waste percentages and yields into total and per-serving
// recipe costs with a line-item breakdown.
package costing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applog "escandallo/internal/log"
	"escandallo/models"
)

// DefaultMaxDepth bounds preparation nesting. Real menus stay in single
// digits; the ceiling exists to stop pathological trees from exhausting the
// stack before the cycle guard can trip.
const DefaultMaxDepth = 16

const preparationUnit = "serving"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// BreakdownItem is one visible row of the escandallo. TotalCost already
// includes the row's own waste even though the aggregate TotalCost does not;
// that asymmetry matches the historical output and is kept on purpose.
type BreakdownItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Type      string          `json:"type"`
}

// Calculation is the full result of costing one recipe.
type Calculation struct {
	TotalCost               decimal.Decimal `json:"totalCost"`
	CostPerServing          decimal.Decimal `json:"costPerServing"`
	CostWithWaste           decimal.Decimal `json:"costWithWaste"`
	CostPerServingWithWaste decimal.Decimal `json:"costPerServingWithWaste"`
	Breakdown               []BreakdownItem `json:"breakdown"`
}

// Calculator walks composition graphs against a live database handle. It is
// stateless between calls, so repeated calculations always see the latest
// stored costs.
type Calculator struct {
	db       *gorm.DB
	maxDepth int
}

// NewCalculator builds a Calculator with the default depth ceiling.
func NewCalculator(db *gorm.DB) *Calculator {
	return &Calculator{db: db, maxDepth: DefaultMaxDepth}
}

// RecipeCost computes the escandallo for one recipe. It fails with
// gorm.ErrRecordNotFound for a missing or soft-deleted recipe and with
// ErrEmptyRecipe when the recipe has no lines; no partial result is ever
// returned.
func (c *Calculator) RecipeCost(ctx context.Context, recipeID uint) (*Calculation, error) {
	var recipe models.Recipe
	if err := c.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Ingredient").
		Preload("Items.Preparation").
		First(&recipe, recipeID).Error; err != nil {
		return nil, fmt.Errorf("load recipe %d: %w", recipeID, err)
	}

	if len(recipe.Items) == 0 {
		return nil, fmt.Errorf("recipe %d: %w", recipeID, ErrEmptyRecipe)
	}

	totalCost := decimal.Zero
	totalCostWithWaste := decimal.Zero
	breakdown := make([]BreakdownItem, 0, len(recipe.Items))
	visited := make(map[uint]struct{})

	for _, item := range recipe.Items {
		hasIngredient := item.IngredientID != nil
		hasPreparation := item.PreparationID != nil

		switch {
		case hasIngredient && !hasPreparation:
			if item.Ingredient == nil {
				return nil, fmt.Errorf("recipe item %d: ingredient %d: %w", item.ID, *item.IngredientID, gorm.ErrRecordNotFound)
			}
			base := item.Ingredient.CurrentCost.Mul(item.Quantity)
			withWaste := base.Mul(wasteMultiplier(item.Ingredient.WastePercentage))

			totalCost = totalCost.Add(base)
			totalCostWithWaste = totalCostWithWaste.Add(withWaste)

			breakdown = append(breakdown, BreakdownItem{
				Name:      item.Ingredient.Name,
				Quantity:  item.Quantity,
				Unit:      item.Ingredient.Unit,
				UnitCost:  item.Ingredient.CurrentCost,
				TotalCost: withWaste,
				Type:      "ingredient",
			})

		case hasPreparation && !hasIngredient:
			unitCost, err := c.preparationCost(ctx, *item.PreparationID, visited, 0)
			if err != nil {
				return nil, err
			}
			line := unitCost.Mul(item.Quantity)

			// Sub-preparation waste is already folded into unitCost, so the
			// line is never re-inflated at the recipe level.
			totalCost = totalCost.Add(line)
			totalCostWithWaste = totalCostWithWaste.Add(line)

			name := ""
			if item.Preparation != nil {
				name = item.Preparation.Name
			}
			breakdown = append(breakdown, BreakdownItem{
				Name:      name,
				Quantity:  item.Quantity,
				Unit:      preparationUnit,
				UnitCost:  unitCost,
				TotalCost: line,
				Type:      "preparation",
			})

		default:
			return nil, fmt.Errorf("recipe item %d: %w", item.ID, ErrInvalidItem)
		}
	}

	servings := recipe.Servings
	if servings < 1 {
		servings = 1
	}
	divisor := decimal.NewFromInt(int64(servings))

	return &Calculation{
		TotalCost:               totalCost,
		CostPerServing:          totalCost.Div(divisor),
		CostWithWaste:           totalCostWithWaste,
		CostPerServingWithWaste: totalCostWithWaste.Div(divisor),
		Breakdown:               breakdown,
	}, nil
}

// preparationCost returns the cost of ONE serving of a preparation, with
// the preparation's own waste folded in before dividing by yield. A
// dangling reference resolves to zero rather than failing, matching the
// historical behaviour; the walk flags it loudly instead of hiding it.
func (c *Calculator) preparationCost(ctx context.Context, preparationID uint, visited map[uint]struct{}, depth int) (decimal.Decimal, error) {
	if depth >= c.maxDepth {
		return decimal.Zero, fmt.Errorf("preparation %d at depth %d: %w", preparationID, depth, ErrCompositionTooDeep)
	}
	if _, ok := visited[preparationID]; ok {
		return decimal.Zero, fmt.Errorf("preparation %d: %w", preparationID, ErrCyclicComposition)
	}
	visited[preparationID] = struct{}{}
	defer delete(visited, preparationID)

	var preparation models.Preparation
	err := c.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Ingredient").
		First(&preparation, preparationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Warn(ctx, "dangling preparation reference costed as zero", "preparation", preparationID)
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("load preparation %d: %w", preparationID, err)
	}

	total := decimal.Zero
	for _, item := range preparation.Items {
		hasIngredient := item.IngredientID != nil
		hasSubPreparation := item.SubPreparationID != nil

		switch {
		case hasIngredient && !hasSubPreparation:
			if item.Ingredient == nil {
				return decimal.Zero, fmt.Errorf("preparation item %d: ingredient %d: %w", item.ID, *item.IngredientID, gorm.ErrRecordNotFound)
			}
			total = total.Add(item.Ingredient.CurrentCost.Mul(item.Quantity))

		case hasSubPreparation && !hasIngredient:
			unitCost, err := c.preparationCost(ctx, *item.SubPreparationID, visited, depth+1)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(unitCost.Mul(item.Quantity))

		default:
			return decimal.Zero, fmt.Errorf("preparation item %d: %w", item.ID, ErrInvalidItem)
		}
	}

	total = total.Mul(wasteMultiplier(preparation.WastePercentage))

	yield := preparation.Yield
	if yield < 1 {
		yield = 1
	}
	return total.Div(decimal.NewFromInt(int64(yield))), nil
}

// wasteMultiplier turns a 0-100 waste percentage into a 1+p/100 factor.
func wasteMultiplier(percentage decimal.NullDecimal) decimal.Decimal {
	if !percentage.Valid || percentage.Decimal.IsZero() {
		return one
	}
	return one.Add(percentage.Decimal.Div(hundred))
}
