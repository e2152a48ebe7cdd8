package handlers

import (
	"context"
	"encoding/json"

	applog "escandallo/internal/log"
	"escandallo/models"
)

// recordAudit appends an audit row for a mutating operation. Audit failures
// are logged but never fail the request that triggered them.
func recordAudit(ctx context.Context, userID uint, action, module string, entityID uint, oldValue, newValue any) {
	if database == nil {
		return
	}

	entry := models.AuditLog{
		UserID:   userID,
		Action:   action,
		Module:   module,
		EntityID: entityID,
	}

	if oldValue != nil {
		if raw, err := json.Marshal(oldValue); err == nil {
			entry.OldValue = string(raw)
		}
	}
	if newValue != nil {
		if raw, err := json.Marshal(newValue); err == nil {
			entry.NewValue = string(raw)
		}
	}

	if err := database.WithContext(ctx).Create(&entry).Error; err != nil {
		applog.Error(ctx, "failed to record audit entry", "error", err, "module", module, "action", action, "entity", entityID)
	}
}
