package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"escandallo/models"
)

func TestDashboardCountsAndRecentChanges(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	db, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	sm := sessionManager
	tomato := seedIngredient(t, db, "Tomato", "0.002")
	seedIngredient(t, db, "Onion", "0.001")

	if err := db.Create(&models.Recipe{Name: "Gazpacho", Servings: 4}).Error; err != nil {
		t.Fatalf("failed to seed recipe: %v", err)
	}
	if err := db.Create(&models.Preparation{Name: "Sofrito", Yield: 10}).Error; err != nil {
		t.Fatalf("failed to seed preparation: %v", err)
	}
	history := models.IngredientCostHistory{
		IngredientID: tomato.ID,
		Cost:         decimal.RequireFromString("0.002"),
		EffectiveAt:  time.Now().UTC(),
	}
	if err := db.Create(&history).Error; err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}

	req := authenticatedRequest(t, sm, http.MethodGet, "/app/api/dashboard", nil)
	w := httptest.NewRecorder()
	Dashboard(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response dashboardResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode dashboard: %v", err)
	}
	if response.Ingredients != 2 || response.Recipes != 1 || response.Preparations != 1 {
		t.Fatalf("unexpected counts: %+v", response)
	}
	if len(response.RecentCostChanges) != 1 || response.RecentCostChanges[0].IngredientName != "Tomato" {
		t.Fatalf("unexpected recent changes: %+v", response.RecentCostChanges)
	}
}

func TestDashboardRejectsOtherMethods(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/app/api/dashboard", nil)
	w := httptest.NewRecorder()
	Dashboard(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
