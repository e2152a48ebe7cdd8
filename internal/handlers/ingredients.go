package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applog "escandallo/internal/log"
	"escandallo/internal/units"
	"escandallo/models"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

type ingredientRequest struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Unit            string           `json:"unit"`
	CurrentCost     *decimal.Decimal `json:"current_cost"`
	WastePercentage *decimal.Decimal `json:"waste_percentage"`
}

type purchaseRequest struct {
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

type costHistoryResponse struct {
	ID          uint            `json:"id"`
	Cost        decimal.Decimal `json:"cost"`
	EffectiveAt time.Time       `json:"effective_at"`
}

type ingredientResponse struct {
	ID                   uint                  `json:"id"`
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	Unit                 string                `json:"unit"`
	UnitAbbreviation     string                `json:"unit_abbreviation"`
	CurrentCost          decimal.Decimal       `json:"current_cost"`
	WastePercentage      decimal.NullDecimal   `json:"waste_percentage"`
	LastPurchaseQuantity decimal.NullDecimal   `json:"last_purchase_quantity"`
	LastPurchaseCost     decimal.NullDecimal   `json:"last_purchase_cost"`
	LastPurchaseUnit     *string               `json:"last_purchase_unit,omitempty"`
	CostHistory          []costHistoryResponse `json:"cost_history,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// IngredientResource handles REST-style interactions for ingredient
// records, including the cost ledger operations.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "ingredient request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "ingredient request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/ingredients")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r)
		case http.MethodPost:
			createIngredient(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	ingredientID := uint(idValue)

	if len(segments) > 1 {
		switch segments[1] {
		case "cost-history":
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			showCostHistory(w, r, ingredientID)
		case "purchase":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			registerPurchase(w, r, ingredientID, userID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showIngredient(w, r, ingredientID)
	case http.MethodPut:
		updateIngredient(w, r, ingredientID, userID)
	case http.MethodDelete:
		deleteIngredient(w, r, ingredientID, userID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, take, search := listParams(r)

	query := database.WithContext(ctx).Model(&models.Ingredient{})
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(name) LIKE ? OR lower(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		applog.Error(ctx, "failed to count ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}

	var results []models.Ingredient
	if err := query.Order("name asc").Offset(skip).Limit(take).Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}

	responses := make([]ingredientResponse, 0, len(results))
	for _, ingredient := range results {
		responses = append(responses, projectIngredient(ingredient))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: responses, Meta: newListMeta(total, skip, take)})
}

func showIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	var ingredient models.Ingredient
	err := database.WithContext(ctx).
		Preload("CostHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("effective_at desc").Limit(defaultHistoryLimit)
		}).
		First(&ingredient, ingredientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "ingredient not found", "id", ingredientID)
			writeJSONError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		applog.Error(ctx, "failed to load ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	writeJSON(w, http.StatusOK, projectIngredient(ingredient))
}

func createIngredient(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var payload ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	unit, err := validateIngredientPayload(payload)
	if err != nil {
		applog.Debug(ctx, "ingredient validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	cost := decimal.Zero
	if payload.CurrentCost != nil {
		cost = *payload.CurrentCost
	}

	ingredient := models.Ingredient{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Unit:        string(unit),
		CurrentCost: cost,
	}
	if payload.WastePercentage != nil {
		ingredient.WastePercentage = decimal.NewNullDecimal(*payload.WastePercentage)
	}

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ingredient).Error; err != nil {
			return err
		}
		history := models.IngredientCostHistory{
			IngredientID: ingredient.ID,
			Cost:         ingredient.CurrentCost,
			EffectiveAt:  time.Now().UTC(),
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		applog.Error(ctx, "failed to create ingredient", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create ingredient")
		return
	}

	recordAudit(ctx, userID, "create", "ingredients", ingredient.ID, nil, ingredient)
	writeJSON(w, http.StatusCreated, projectIngredient(ingredient))
}

func updateIngredient(w http.ResponseWriter, r *http.Request, ingredientID, userID uint) {
	ctx := r.Context()
	var existing models.Ingredient
	if err := database.WithContext(ctx).First(&existing, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		applog.Error(ctx, "failed to load ingredient for update", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	var payload ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	unit, err := validateIngredientPayload(payload)
	if err != nil {
		applog.Debug(ctx, "ingredient update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	previous := existing

	updates := map[string]any{
		"name":        strings.TrimSpace(payload.Name),
		"description": strings.TrimSpace(payload.Description),
		"unit":        string(unit),
	}
	if payload.WastePercentage != nil {
		updates["waste_percentage"] = *payload.WastePercentage
	} else {
		updates["waste_percentage"] = nil
	}

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}
		if payload.CurrentCost != nil {
			return applyCostChange(tx, &existing, *payload.CurrentCost)
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to update ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusBadRequest, "unable to update ingredient")
		return
	}

	if err := database.WithContext(ctx).First(&existing, ingredientID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load updated ingredient")
		return
	}

	recordAudit(ctx, userID, "update", "ingredients", ingredientID, previous, existing)
	writeJSON(w, http.StatusOK, projectIngredient(existing))
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, ingredientID, userID uint) {
	ctx := r.Context()
	var ingredient models.Ingredient
	if err := database.WithContext(ctx).First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		applog.Error(ctx, "failed to load ingredient for delete", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	// gorm.Model soft delete; the cost history ledger stays behind.
	if err := database.WithContext(ctx).Delete(&ingredient).Error; err != nil {
		applog.Error(ctx, "failed to soft delete ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete ingredient")
		return
	}

	recordAudit(ctx, userID, "delete", "ingredients", ingredientID, ingredient, nil)
	w.WriteHeader(http.StatusNoContent)
}

func showCostHistory(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()

	var ingredient models.Ingredient
	if err := database.WithContext(ctx).First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		applog.Error(ctx, "failed to load ingredient for history", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load cost history")
		return
	}

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var entries []models.IngredientCostHistory
	if err := database.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("effective_at desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		applog.Error(ctx, "failed to load cost history", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load cost history")
		return
	}

	responses := make([]costHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, costHistoryResponse{ID: entry.ID, Cost: entry.Cost, EffectiveAt: entry.EffectiveAt})
	}
	writeJSON(w, http.StatusOK, responses)
}

func registerPurchase(w http.ResponseWriter, r *http.Request, ingredientID, userID uint) {
	ctx := r.Context()

	var ingredient models.Ingredient
	if err := database.WithContext(ctx).First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		applog.Error(ctx, "failed to load ingredient for purchase", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	var payload purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid purchase payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	unit, err := units.Parse(payload.Unit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Quantity.Sign() <= 0 {
		writeJSONError(w, http.StatusBadRequest, "purchase quantity must be greater than zero")
		return
	}
	if payload.TotalCost.Sign() < 0 {
		writeJSONError(w, http.StatusBadRequest, "purchase cost must not be negative")
		return
	}

	newCost, err := units.CostPerBaseUnit(payload.Quantity, payload.TotalCost, unit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	baseQuantity, err := units.ToBase(payload.Quantity, unit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	previous := ingredient
	unitCode := string(unit)

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchaseUpdates := map[string]any{
			"last_purchase_quantity": baseQuantity,
			"last_purchase_cost":     payload.TotalCost,
			"last_purchase_unit":     unitCode,
		}
		if err := tx.Model(&ingredient).Updates(purchaseUpdates).Error; err != nil {
			return err
		}
		return applyCostChange(tx, &ingredient, newCost)
	})
	if err != nil {
		applog.Error(ctx, "failed to register purchase", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to register purchase")
		return
	}

	if err := database.WithContext(ctx).First(&ingredient, ingredientID).Error; err != nil {
		applog.Error(ctx, "failed to reload ingredient after purchase", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load updated ingredient")
		return
	}

	recordAudit(ctx, userID, "update", "ingredients", ingredientID, previous, ingredient)
	writeJSON(w, http.StatusOK, projectIngredient(ingredient))
}

// applyCostChange sets a new per-base-unit cost and appends a ledger row,
// unless the value is numerically unchanged. A no-op cost update must leave
// the ledger untouched.
func applyCostChange(tx *gorm.DB, ingredient *models.Ingredient, newCost decimal.Decimal) error {
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

func validateIngredientPayload(payload ingredientRequest) (units.Unit, error) {
	if strings.TrimSpace(payload.Name) == "" {
		return "", errors.New("name is required")
	}
	unit, err := units.Parse(payload.Unit)
	if err != nil {
		return "", err
	}
	if payload.CurrentCost != nil && payload.CurrentCost.Sign() < 0 {
		return "", errors.New("current_cost must not be negative")
	}
	if payload.WastePercentage != nil {
		p := *payload.WastePercentage
		if p.Sign() < 0 || p.GreaterThan(decimal.NewFromInt(100)) {
			return "", errors.New("waste_percentage must be between 0 and 100")
		}
	}
	return unit, nil
}

func projectIngredient(ingredient models.Ingredient) ingredientResponse {
	response := ingredientResponse{
		ID:                   ingredient.ID,
		Name:                 ingredient.Name,
		Description:          ingredient.Description,
		Unit:                 ingredient.Unit,
		UnitAbbreviation:     units.Abbreviation(units.Unit(ingredient.Unit)),
		CurrentCost:          ingredient.CurrentCost,
		WastePercentage:      ingredient.WastePercentage,
		LastPurchaseQuantity: ingredient.LastPurchaseQuantity,
		LastPurchaseCost:     ingredient.LastPurchaseCost,
		LastPurchaseUnit:     ingredient.LastPurchaseUnit,
		CreatedAt:            ingredient.CreatedAt,
		UpdatedAt:            ingredient.UpdatedAt,
	}

	for _, entry := range ingredient.CostHistory {
		response.CostHistory = append(response.CostHistory, costHistoryResponse{
			ID:          entry.ID,
			Cost:        entry.Cost,
			EffectiveAt: entry.EffectiveAt,
		})
	}

	return response
}
