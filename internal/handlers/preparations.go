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
	"escandallo/models"
)

type preparationItemRequest struct {
	IngredientID     *uint           `json:"ingredient_id"`
	SubPreparationID *uint           `json:"sub_preparation_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Note             string          `json:"note"`
}

type preparationRequest struct {
	Name            string                   `json:"name"`
	Description     string                   `json:"description"`
	Yield           int                      `json:"yield"`
	WastePercentage *decimal.Decimal         `json:"waste_percentage"`
	Items           []preparationItemRequest `json:"items"`
}

type preparationItemResponse struct {
	ID               uint            `json:"id"`
	IngredientID     *uint           `json:"ingredient_id,omitempty"`
	SubPreparationID *uint           `json:"sub_preparation_id,omitempty"`
	Name             string          `json:"name"`
	Quantity         decimal.Decimal `json:"quantity"`
	Note             string          `json:"note,omitempty"`
}

type preparationResponse struct {
	ID              uint                      `json:"id"`
	Name            string                    `json:"name"`
	Description     string                    `json:"description"`
	Yield           int                       `json:"yield"`
	WastePercentage decimal.NullDecimal       `json:"waste_percentage"`
	Items           []preparationItemResponse `json:"items"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// PreparationResource handles REST-style interactions for preparations,
// the reusable intermediate components recipes are composed from.
func PreparationResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "preparation request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "preparation request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/preparations")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listPreparations(w, r)
		case http.MethodPost:
			createPreparation(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid preparation identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	preparationID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showPreparation(w, r, preparationID)
	case http.MethodPut:
		updatePreparation(w, r, preparationID, userID)
	case http.MethodDelete:
		deletePreparation(w, r, preparationID, userID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listPreparations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, take, search := listParams(r)

	query := database.WithContext(ctx).Model(&models.Preparation{})
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(name) LIKE ? OR lower(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		applog.Error(ctx, "failed to count preparations", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load preparations")
		return
	}

	var results []models.Preparation
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Ingredient").
		Preload("Items.SubPreparation").
		Order("name asc").Offset(skip).Limit(take).
		Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list preparations", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load preparations")
		return
	}

	responses := make([]preparationResponse, 0, len(results))
	for _, preparation := range results {
		responses = append(responses, projectPreparation(preparation))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: responses, Meta: newListMeta(total, skip, take)})
}

func loadPreparation(conn *gorm.DB, preparationID uint) (models.Preparation, error) {
	var preparation models.Preparation
	err := conn.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Ingredient").
		Preload("Items.SubPreparation").
		First(&preparation, preparationID).Error
	return preparation, err
}

func showPreparation(w http.ResponseWriter, r *http.Request, preparationID uint) {
	ctx := r.Context()
	preparation, err := loadPreparation(database.WithContext(ctx), preparationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "preparation not found")
			return
		}
		applog.Error(ctx, "failed to load preparation", "error", err, "id", preparationID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load preparation")
		return
	}
	writeJSON(w, http.StatusOK, projectPreparation(preparation))
}

func createPreparation(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var payload preparationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid preparation create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validatePreparationPayload(payload); err != nil {
		applog.Debug(ctx, "preparation validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	preparation := models.Preparation{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Yield:       payload.Yield,
	}
	if preparation.Yield < 1 {
		preparation.Yield = 1
	}
	if payload.WastePercentage != nil {
		preparation.WastePercentage = decimal.NewNullDecimal(*payload.WastePercentage)
	}
	for _, item := range payload.Items {
		preparation.Items = append(preparation.Items, models.PreparationItem{
			IngredientID:     item.IngredientID,
			SubPreparationID: item.SubPreparationID,
			Quantity:         item.Quantity,
			Note:             strings.TrimSpace(item.Note),
		})
	}

	if err := database.WithContext(ctx).Create(&preparation).Error; err != nil {
		applog.Error(ctx, "failed to create preparation", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create preparation")
		return
	}

	created, err := loadPreparation(database.WithContext(ctx), preparation.ID)
	if err != nil {
		applog.Error(ctx, "failed to reload created preparation", "error", err, "id", preparation.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load created preparation")
		return
	}

	recordAudit(ctx, userID, "create", "preparations", preparation.ID, nil, created)
	writeJSON(w, http.StatusCreated, projectPreparation(created))
}

func updatePreparation(w http.ResponseWriter, r *http.Request, preparationID, userID uint) {
	ctx := r.Context()
	existing, err := loadPreparation(database.WithContext(ctx), preparationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "preparation not found")
			return
		}
		applog.Error(ctx, "failed to load preparation for update", "error", err, "id", preparationID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load preparation")
		return
	}

	var payload preparationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid preparation update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validatePreparationPayload(payload); err != nil {
		applog.Debug(ctx, "preparation update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	yield := payload.Yield
	if yield < 1 {
		yield = 1
	}
	updates := map[string]any{
		"name":        strings.TrimSpace(payload.Name),
		"description": strings.TrimSpace(payload.Description),
		"yield":       yield,
	}
	if payload.WastePercentage != nil {
		updates["waste_percentage"] = *payload.WastePercentage
	} else {
		updates["waste_percentage"] = nil
	}

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Preparation{}).Where("id = ?", preparationID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("preparation_id = ?", preparationID).Delete(&models.PreparationItem{}).Error; err != nil {
			return err
		}
		for _, item := range payload.Items {
			row := models.PreparationItem{
				PreparationID:    preparationID,
				IngredientID:     item.IngredientID,
				SubPreparationID: item.SubPreparationID,
				Quantity:         item.Quantity,
				Note:             strings.TrimSpace(item.Note),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to update preparation", "error", err, "id", preparationID)
		writeJSONError(w, http.StatusBadRequest, "unable to update preparation")
		return
	}

	updated, err := loadPreparation(database.WithContext(ctx), preparationID)
	if err != nil {
		applog.Error(ctx, "failed to reload updated preparation", "error", err, "id", preparationID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load updated preparation")
		return
	}

	recordAudit(ctx, userID, "update", "preparations", preparationID, existing, updated)
	writeJSON(w, http.StatusOK, projectPreparation(updated))
}

func deletePreparation(w http.ResponseWriter, r *http.Request, preparationID, userID uint) {
	ctx := r.Context()
	var preparation models.Preparation
	if err := database.WithContext(ctx).First(&preparation, preparationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "preparation not found")
			return
		}
		applog.Error(ctx, "failed to load preparation for delete", "error", err, "id", preparationID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load preparation")
		return
	}

	// Recipes that still reference the preparation keep their lines; the
	// cost engine prices a dangling reference at zero and logs a warning.
	if err := database.WithContext(ctx).Delete(&preparation).Error; err != nil {
		applog.Error(ctx, "failed to delete preparation", "error", err, "id", preparationID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete preparation")
		return
	}

	recordAudit(ctx, userID, "delete", "preparations", preparationID, preparation, nil)
	w.WriteHeader(http.StatusNoContent)
}

func validatePreparationPayload(payload preparationRequest) error {
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
		if err := validateCompositionItem(item.IngredientID, item.SubPreparationID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func projectPreparation(preparation models.Preparation) preparationResponse {
	response := preparationResponse{
		ID:              preparation.ID,
		Name:            preparation.Name,
		Description:     preparation.Description,
		Yield:           preparation.Yield,
		WastePercentage: preparation.WastePercentage,
		Items:           make([]preparationItemResponse, 0, len(preparation.Items)),
		CreatedAt:       preparation.CreatedAt,
		UpdatedAt:       preparation.UpdatedAt,
	}

	for _, item := range preparation.Items {
		entry := preparationItemResponse{
			ID:               item.ID,
			IngredientID:     item.IngredientID,
			SubPreparationID: item.SubPreparationID,
			Quantity:         item.Quantity,
			Note:             item.Note,
		}
		switch {
		case item.Ingredient != nil:
			entry.Name = item.Ingredient.Name
		case item.SubPreparation != nil:
			entry.Name = item.SubPreparation.Name
		}
		response.Items = append(response.Items, entry)
	}

	return response
}
