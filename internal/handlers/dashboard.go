package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	applog "escandallo/internal/log"
	"escandallo/models"
)

type costChangeResponse struct {
	IngredientID   uint            `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Cost           decimal.Decimal `json:"cost"`
	EffectiveAt    time.Time       `json:"effective_at"`
}

type dashboardResponse struct {
	Ingredients       int64                `json:"ingredients"`
	Recipes           int64                `json:"recipes"`
	Preparations      int64                `json:"preparations"`
	RecentCostChanges []costChangeResponse `json:"recent_cost_changes"`
}

// Dashboard reports catalogue counts and the latest cost movements.
func Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	ctx := r.Context()
	var response dashboardResponse

	counts := []struct {
		model any
		dest  *int64
	}{
		{&models.Ingredient{}, &response.Ingredients},
		{&models.Recipe{}, &response.Recipes},
		{&models.Preparation{}, &response.Preparations},
	}
	for _, c := range counts {
		if err := database.WithContext(ctx).Model(c.model).Count(c.dest).Error; err != nil {
			applog.Error(ctx, "failed to count records for dashboard", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to load dashboard")
			return
		}
	}

	type changeRow struct {
		IngredientID uint
		Name         string
		Cost         decimal.Decimal
		EffectiveAt  time.Time
	}
	var rows []changeRow
	err := database.WithContext(ctx).
		Model(&models.IngredientCostHistory{}).
		Select("ingredient_cost_histories.ingredient_id, ingredients.name, ingredient_cost_histories.cost, ingredient_cost_histories.effective_at").
		Joins("JOIN ingredients ON ingredients.id = ingredient_cost_histories.ingredient_id AND ingredients.deleted_at IS NULL").
		Order("ingredient_cost_histories.effective_at desc").
		Limit(defaultHistoryLimit).
		Scan(&rows).Error
	if err != nil {
		applog.Error(ctx, "failed to load recent cost changes", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load dashboard")
		return
	}

	response.RecentCostChanges = make([]costChangeResponse, 0, len(rows))
	for _, row := range rows {
		response.RecentCostChanges = append(response.RecentCostChanges, costChangeResponse{
			IngredientID:   row.IngredientID,
			IngredientName: row.Name,
			Cost:           row.Cost,
			EffectiveAt:    row.EffectiveAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
