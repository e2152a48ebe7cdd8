package mock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "escandallo/internal/log"
	"escandallo/internal/units"
	"escandallo/models"
)

// New returns an in-memory sqlite database seeded with a small but
// representative kitchen: costed ingredients, a stock preparation, and a
// recipe that uses both.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:escandallo-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.IngredientCostHistory{},
		&models.Preparation{},
		&models.PreparationItem{},
		&models.Recipe{},
		&models.RecipeItem{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("cocina"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:         "Marta Cocina",
		Email:        "marta@escandallo.app",
		PasswordHash: string(password),
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	tomato := models.Ingredient{
		Name:            "Pear Tomato",
		Description:     "Ripe pear tomatoes for sauces and sofrito.",
		Unit:            string(units.Kilogram),
		CurrentCost:     decimal.RequireFromString("0.0022"),
		WastePercentage: decimal.NewNullDecimal(decimal.NewFromInt(8)),
	}

	oliveOil := models.Ingredient{
		Name:        "Extra Virgin Olive Oil",
		Description: "Arbequina, house blend for finishing and sofrito.",
		Unit:        string(units.Milliliter),
		CurrentCost: decimal.RequireFromString("0.0075"),
	}

	egg := models.Ingredient{
		Name:        "Free Range Egg",
		Description: "Size M.",
		Unit:        string(units.Piece),
		CurrentCost: decimal.RequireFromString("0.28"),
	}

	ingredients := []*models.Ingredient{&tomato, &oliveOil, &egg}
	for _, ingredient := range ingredients {
		if err := db.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
		history := models.IngredientCostHistory{
			IngredientID: ingredient.ID,
			Cost:         ingredient.CurrentCost,
			EffectiveAt:  time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&history).Error; err != nil {
			return err
		}
	}

	sofrito := models.Preparation{
		Name:            "Sofrito Base",
		Description:     "Slow-cooked tomato and olive oil base.",
		Yield:           10,
		WastePercentage: decimal.NewNullDecimal(decimal.NewFromInt(5)),
	}
	if err := db.WithContext(ctx).Create(&sofrito).Error; err != nil {
		return err
	}

	sofritoItems := []models.PreparationItem{
		{
			PreparationID: sofrito.ID,
			IngredientID:  &tomato.ID,
			Quantity:      decimal.NewFromInt(2000),
			Note:          "peeled and chopped",
		},
		{
			PreparationID: sofrito.ID,
			IngredientID:  &oliveOil.ID,
			Quantity:      decimal.NewFromInt(200),
		},
	}
	for _, item := range sofritoItems {
		itemCopy := item
		if err := db.WithContext(ctx).Create(&itemCopy).Error; err != nil {
			return err
		}
	}

	huevosRotos := models.Recipe{
		Name:        "Huevos Rotos con Sofrito",
		Description: "Fried eggs over sofrito base.",
		Servings:    2,
	}
	if err := db.WithContext(ctx).Create(&huevosRotos).Error; err != nil {
		return err
	}

	recipeItems := []models.RecipeItem{
		{
			RecipeID:     huevosRotos.ID,
			IngredientID: &egg.ID,
			Quantity:     decimal.NewFromInt(4),
		},
		{
			RecipeID:      huevosRotos.ID,
			PreparationID: &sofrito.ID,
			Quantity:      decimal.NewFromInt(2),
			Note:          "two servings of base",
		},
	}
	for _, item := range recipeItems {
		itemCopy := item
		if err := db.WithContext(ctx).Create(&itemCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
