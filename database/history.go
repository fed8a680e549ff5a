package database

import (
	"context"
	"fmt"

	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
)

// HistoryDBHandlerFunctions defines the interface for event history queries.
type HistoryDBHandlerFunctions interface {
	SelectHistory(ctx context.Context, kind model.EntityKind, key string) ([]model.HistoryEntry, error)
}

// HistoryDBHandler handles event history queries
type HistoryDBHandler struct {
	db *helper.Database
}

// NewHistoryDBHandler creates a new history database handler.
func NewHistoryDBHandler(db *helper.Database) (*HistoryDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	db.Logger.Info("Initialized HistoryDBHandler")

	return &HistoryDBHandler{db: db}, nil
}

// EntityType maps an entity kind to the entity_type stored in entity_links
func EntityType(kind model.EntityKind) (string, error) {
	switch kind {
	case model.KindVehicle:
		return "vehicle", nil
	case model.KindPerson:
		return "person", nil
	case model.KindLocation:
		return "location", nil
	}
	return "", fmt.Errorf("unknown entity kind %q", kind)
}

// SelectHistory retrieves the events an entity is linked to, newest first.
// The key is the stored identifier: vehicle id, DNI or location id.
func (h *HistoryDBHandler) SelectHistory(ctx context.Context, kind model.EntityKind, key string) ([]model.HistoryEntry, error) {
	entityType, err := EntityType(kind)
	if err != nil {
		return nil, NewGatewayError("select history", err)
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		h.db.Rebind(`SELECT el.source_event_id, COALESCE(e.fecha_evento, ''), COALESCE(e.capitulo, '')
		FROM entity_links el
		LEFT JOIN events_drag e ON e.event_id = el.source_event_id
		WHERE el.entity_type = ? AND el.entity_id = ?
		ORDER BY COALESCE(e.fecha_evento, '') DESC, el.created_at_ts DESC, el.link_id DESC`),
		entityType,
		key,
	)
	if err != nil {
		return nil, NewGatewayError("select history", helper.NewError("query", err))
	}
	defer rows.Close()

	history := []model.HistoryEntry{}
	for rows.Next() {
		entry := model.HistoryEntry{}
		err := rows.Scan(
			&entry.EventID,
			&entry.Date,
			&entry.Category,
		)
		if err != nil {
			return nil, NewGatewayError("select history", helper.NewError("scan", err))
		}

		history = append(history, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, NewGatewayError("select history", helper.NewError("rows error", err))
	}

	return history, nil
}
