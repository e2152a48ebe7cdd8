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

	"escandallo/internal/costing"
	applog "escandallo/internal/log"
	"escandallo/models"
)

type recipeItemRequest struct {
	IngredientID  *uint           `json:"ingredient_id"`
	PreparationID *uint           `json:"preparation_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Note          string          `json:"note"`
}

type recipeRequest struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Servings        int                 `json:"servings"`
	WastePercentage *decimal.Decimal    `json:"waste_percentage"`
	Items           []recipeItemRequest `json:"items"`
}

type recipeItemResponse struct {
	ID            uint            `json:"id"`
	IngredientID  *uint           `json:"ingredient_id,omitempty"`
	PreparationID *uint           `json:"preparation_id,omitempty"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Note          string          `json:"note,omitempty"`
}

type recipeResponse struct {
	ID              uint                 `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	Servings        int                  `json:"servings"`
	WastePercentage decimal.NullDecimal  `json:"waste_percentage"`
	Items           []recipeItemResponse `json:"items"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// RecipeResource handles REST-style interactions for recipes, including
// the recursive cost report.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "recipe request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "recipe request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/recipes")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listRecipes(w, r)
		case http.MethodPost:
			createRecipe(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	recipeID := uint(idValue)

	if len(segments) > 1 {
		if segments[1] == "cost" && r.Method == http.MethodGet {
			showRecipeCost(w, r, recipeID)
			return
		}
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, recipeID)
	case http.MethodPut:
		updateRecipe(w, r, recipeID, userID)
	case http.MethodDelete:
		deleteRecipe(w, r, recipeID, userID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, take, search := listParams(r)

	query := database.WithContext(ctx).Model(&models.Recipe{})
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(name) LIKE ? OR lower(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		applog.Error(ctx, "failed to count recipes", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipes")
		return
	}

	var results []models.Recipe
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Ingredient").
		Preload("Items.Preparation").
		Order("name asc").Offset(skip).Limit(take).
		Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list recipes", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipes")
		return
	}

	responses := make([]recipeResponse, 0, len(results))
	for _, recipe := range results {
		responses = append(responses, projectRecipe(recipe))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: responses, Meta: newListMeta(total, skip, take)})
}

func loadRecipe(conn *gorm.DB, recipeID uint) (models.Recipe, error) {
	var recipe models.Recipe
	err := conn.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Ingredient").
		Preload("Items.Preparation").
		First(&recipe, recipeID).Error
	return recipe, err
}

func showRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()
	recipe, err := loadRecipe(database.WithContext(ctx), recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "recipe not found")
			return
		}
		applog.Error(ctx, "failed to load recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(recipe))
}

func createRecipe(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var payload recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateRecipePayload(payload); err != nil {
		applog.Debug(ctx, "recipe validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	recipe := models.Recipe{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Servings:    payload.Servings,
	}
	if recipe.Servings < 1 {
		recipe.Servings = 1
	}
	if payload.WastePercentage != nil {
		recipe.WastePercentage = decimal.NewNullDecimal(*payload.WastePercentage)
	}
	for _, item := range payload.Items {
		recipe.Items = append(recipe.Items, models.RecipeItem{
			IngredientID:  item.IngredientID,
			PreparationID: item.PreparationID,
			Quantity:      item.Quantity,
			Note:          strings.TrimSpace(item.Note),
		})
	}

	if err := database.WithContext(ctx).Create(&recipe).Error; err != nil {
		applog.Error(ctx, "failed to create recipe", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create recipe")
		return
	}

	created, err := loadRecipe(database.WithContext(ctx), recipe.ID)
	if err != nil {
		applog.Error(ctx, "failed to reload created recipe", "error", err, "id", recipe.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load created recipe")
		return
	}

	recordAudit(ctx, userID, "create", "recipes", recipe.ID, nil, created)
	writeJSON(w, http.StatusCreated, projectRecipe(created))
}

func updateRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()
	existing, err := loadRecipe(database.WithContext(ctx), recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "recipe not found")
			return
		}
		applog.Error(ctx, "failed to load recipe for update", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	var payload recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateRecipePayload(payload); err != nil {
		applog.Debug(ctx, "recipe update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	servings := payload.Servings
	if servings < 1 {
		servings = 1
	}
	updates := map[string]any{
		"name":        strings.TrimSpace(payload.Name),
		"description": strings.TrimSpace(payload.Description),
		"servings":    servings,
	}
	if payload.WastePercentage != nil {
		updates["waste_percentage"] = *payload.WastePercentage
	} else {
		updates["waste_percentage"] = nil
	}

	// Item replacement is all-or-nothing: the existing rows are dropped and
	// the submitted ones inserted inside one transaction.
	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("recipe_id = ?", recipeID).Delete(&models.RecipeItem{}).Error; err != nil {
			return err
		}
		for _, item := range payload.Items {
			row := models.RecipeItem{
				RecipeID:      recipeID,
				IngredientID:  item.IngredientID,
				PreparationID: item.PreparationID,
				Quantity:      item.Quantity,
				Note:          strings.TrimSpace(item.Note),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to update recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusBadRequest, "unable to update recipe")
		return
	}

	updated, err := loadRecipe(database.WithContext(ctx), recipeID)
	if err != nil {
		applog.Error(ctx, "failed to reload updated recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load updated recipe")
		return
	}

	recordAudit(ctx, userID, "update", "recipes", recipeID, existing, updated)
	writeJSON(w, http.StatusOK, projectRecipe(updated))
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()
	var recipe models.Recipe
	if err := database.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "recipe not found")
			return
		}
		applog.Error(ctx, "failed to load recipe for delete", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	if err := database.WithContext(ctx).Delete(&recipe).Error; err != nil {
		applog.Error(ctx, "failed to delete recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete recipe")
		return
	}

	recordAudit(ctx, userID, "delete", "recipes", recipeID, recipe, nil)
	w.WriteHeader(http.StatusNoContent)
}

func showRecipeCost(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()
	calculator := costing.NewCalculator(database)

	calculation, err := calculator.RecipeCost(ctx, recipeID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			writeJSONError(w, http.StatusNotFound, "recipe not found")
		case errors.Is(err, costing.ErrEmptyRecipe), errors.Is(err, costing.ErrInvalidItem):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, costing.ErrCyclicComposition), errors.Is(err, costing.ErrCompositionTooDeep):
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			applog.Error(ctx, "failed to calculate recipe cost", "error", err, "id", recipeID)
			writeJSONError(w, http.StatusInternalServerError, "unable to calculate recipe cost")
		}
		return
	}

	writeJSON(w, http.StatusOK, calculation)
}

func validateRecipePayload(payload recipeRequest) error {
	if strings.TrimSpace(payload.Name) == "" {
		return errors.New("name is required")
	}
	if payload.WastePercentage != nil {
		p := *payload.WastePercentage
		if p.Sign() < 0 || p.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New("waste_percentage must be between 0 and 100")
		}
	}
	for _, item := range payload.Items {
		if err := validateCompositionItem(item.IngredientID, item.PreparationID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// validateCompositionItem enforces the exclusive reference rule shared by
// recipe and preparation lines.
func validateCompositionItem(ingredientID, referenceID *uint, quantity decimal.Decimal) error {
	if ingredientID == nil && referenceID == nil {
		return errors.New("each item must reference an ingredient or a preparation")
	}
	if ingredientID != nil && referenceID != nil {
		return errors.New("an item cannot reference both an ingredient and a preparation")
	}
	if quantity.Sign() <= 0 {
		return errors.New("item quantity must be greater than zero")
	}
	return nil
}

func projectRecipe(recipe models.Recipe) recipeResponse {
	response := recipeResponse{
		ID:              recipe.ID,
		Name:            recipe.Name,
		Description:     recipe.Description,
		Servings:        recipe.Servings,
		WastePercentage: recipe.WastePercentage,
		Items:           make([]recipeItemResponse, 0, len(recipe.Items)),
		CreatedAt:       recipe.CreatedAt,
		UpdatedAt:       recipe.UpdatedAt,
	}

	for _, item := range recipe.Items {
		entry := recipeItemResponse{
			ID:            item.ID,
			IngredientID:  item.IngredientID,
			PreparationID: item.PreparationID,
			Quantity:      item.Quantity,
			Note:          item.Note,
		}
		switch {
		case item.Ingredient != nil:
			entry.Name = item.Ingredient.Name
		case item.Preparation != nil:
			entry.Name = item.Preparation.Name
		}
		response.Items = append(response.Items, entry)
	}

	return response
}
