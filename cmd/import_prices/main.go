package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"escandallo/internal/config"
	"escandallo/internal/db"
	"escandallo/internal/pricelist"
	"escandallo/internal/units"
	"escandallo/models"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import_prices <price-list.pdf|price-list.txt>")
		os.Exit(1)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("price list path must not be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read price list: %w", err)
	}

	var lines []pricelist.Line
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		lines, err = pricelist.ParsePDF(data)
	} else {
		lines, err = pricelist.ParseText(string(data))
	}
	if err != nil {
		return fmt.Errorf("parse price list: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	applied := 0
	var unknown []string
	for idx, line := range lines {
		err := database.Transaction(func(tx *gorm.DB) error {
			var ingredient models.Ingredient
			err := tx.Where("lower(name) = ?", strings.ToLower(line.Name)).First(&ingredient).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				unknown = append(unknown, line.Name)
				return nil
			}
			if err != nil {
				return fmt.Errorf("find ingredient %q: %w", line.Name, err)
			}
			return applyPurchase(tx, &ingredient, line)
		})
		if err != nil {
			return fmt.Errorf("line %d (%s): %w", idx+1, line.Name, err)
		}
		applied++
	}

	fmt.Fprintf(os.Stdout, "Applied %d price lines from %s\n", applied-len(unknown), filepath.Base(path))
	for _, name := range unknown {
		fmt.Fprintf(os.Stdout, "  no matching ingredient: %s\n", name)
	}
	return nil
}

// applyPurchase mirrors the purchase endpoint: the per-base-unit cost is
// derived from the purchase, the last-purchase fields are refreshed and a
// history row is appended only when the cost actually moved.
func applyPurchase(tx *gorm.DB, ingredient *models.Ingredient, line pricelist.Line) error {
	newCost, err := units.CostPerBaseUnit(line.Quantity, line.TotalCost, line.Unit)
	if err != nil {
		return err
	}
	baseQuantity, err := units.ToBase(line.Quantity, line.Unit)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"last_purchase_quantity": baseQuantity,
		"last_purchase_cost":     line.TotalCost,
		"last_purchase_unit":     string(line.Unit),
	}
	if err := tx.Model(ingredient).Updates(updates).Error; err != nil {
		return err
	}

	if ingredient.CurrentCost.Equal(newCost) {
		return nil
	}
	if err := tx.Model(ingredient).Update("current_cost", newCost).Error; err != nil {
		return err
	}
	history := models.IngredientCostHistory{
		IngredientID: ingredient.ID,
		Cost:         newCost,
		EffectiveAt:  time.Now().UTC(),
	}
	return tx.Create(&history).Error
}
