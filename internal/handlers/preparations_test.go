package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"escandallo/models"
)

func TestCreatePreparationWithItems(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	db, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	sm := sessionManager
	tomato := seedIngredient(t, db, "Tomato", "0.002")

	payload := fmt.Sprintf(`{"name":"Sofrito Base","yield":10,"waste_percentage":5,"items":[{"ingredient_id":%d,"quantity":2000}]}`, tomato.ID)
	req := authenticatedRequest(t, sm, http.MethodPost, "/app/api/preparations", strings.NewReader(payload))
	w := httptest.NewRecorder()
	PreparationResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating preparation, got %d: %s", w.Code, w.Body.String())
	}

	var created preparationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode preparation: %v", err)
	}
	if created.Yield != 10 {
		t.Fatalf("unexpected yield %d", created.Yield)
	}
	if len(created.Items) != 1 || created.Items[0].Name != "Tomato" {
		t.Fatalf("unexpected items %+v", created.Items)
	}
}

func TestCreatePreparationClampsYield(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	sm := sessionManager
	req := authenticatedRequest(t, sm, http.MethodPost, "/app/api/preparations", strings.NewReader(`{"name":"Stock","yield":0}`))
	w := httptest.NewRecorder()
	PreparationResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created preparationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode preparation: %v", err)
	}
	if created.Yield != 1 {
		t.Fatalf("expected yield clamped to 1, got %d", created.Yield)
	}
}

func TestCreatePreparationRejectsInvalidItems(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	sm := sessionManager
	payloads := []string{
		`{"name":"Broken","items":[{"quantity":5}]}`,
		`{"name":"Broken","items":[{"ingredient_id":1,"sub_preparation_id":2,"quantity":5}]}`,
		`{"name":"Broken","items":[{"sub_preparation_id":1,"quantity":0}]}`,
	}
	for _, payload := range payloads {
		req := authenticatedRequest(t, sm, http.MethodPost, "/app/api/preparations", strings.NewReader(payload))
		w := httptest.NewRecorder()
		PreparationResource(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for payload %s, got %d", payload, w.Code)
		}
	}
}

func TestUpdatePreparationReplacesItems(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	db, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	sm := sessionManager
	tomato := seedIngredient(t, db, "Tomato", "0.002")
	oil := seedIngredient(t, db, "Olive Oil", "0.0075")

	preparation := models.Preparation{
		Name:  "Sofrito",
		Yield: 5,
		Items: []models.PreparationItem{
			{IngredientID: &tomato.ID, Quantity: decimal.NewFromInt(1000)},
		},
	}
	if err := db.Create(&preparation).Error; err != nil {
		t.Fatalf("failed to seed preparation: %v", err)
	}

	payload := fmt.Sprintf(`{"name":"Sofrito","yield":10,"items":[{"ingredient_id":%d,"quantity":2000},{"ingredient_id":%d,"quantity":200}]}`, tomato.ID, oil.ID)
	req := authenticatedRequest(t, sm, http.MethodPut, fmt.Sprintf("/app/api/preparations/%d", preparation.ID), strings.NewReader(payload))
	w := httptest.NewRecorder()
	PreparationResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 updating preparation, got %d: %s", w.Code, w.Body.String())
	}

	var updated preparationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode preparation: %v", err)
	}
	if updated.Yield != 10 || len(updated.Items) != 2 {
		t.Fatalf("expected replaced items, got yield=%d items=%d", updated.Yield, len(updated.Items))
	}

	var count int64
	if err := db.Model(&models.PreparationItem{}).Where("preparation_id = ?", preparation.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count items: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 persisted items, got %d", count)
	}
}

func TestDeletePreparationKeepsRecipeLines(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	db, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	sm := sessionManager
	preparation := models.Preparation{Name: "Stock", Yield: 4}
	if err := db.Create(&preparation).Error; err != nil {
		t.Fatalf("failed to seed preparation: %v", err)
	}
	recipe := models.Recipe{
		Name:     "Soup",
		Servings: 2,
		Items: []models.RecipeItem{
			{PreparationID: &preparation.ID, Quantity: decimal.NewFromInt(1)},
		},
	}
	if err := db.Create(&recipe).Error; err != nil {
		t.Fatalf("failed to seed recipe: %v", err)
	}

	req := authenticatedRequest(t, sm, http.MethodDelete, fmt.Sprintf("/app/api/preparations/%d", preparation.ID), nil)
	w := httptest.NewRecorder()
	PreparationResource(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting preparation, got %d", w.Code)
	}

	var count int64
	if err := db.Model(&models.RecipeItem{}).Where("recipe_id = ?", recipe.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count recipe items: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected recipe line to survive preparation delete, got %d", count)
	}
}
