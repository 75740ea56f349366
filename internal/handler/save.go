package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/georgivlv/passenger-portal/internal/odoo"
	"github.com/georgivlv/passenger-portal/internal/passenger"
)

// save patches the submitted passengers one at a time. Entries whose id does
// not belong to the token are skipped without telling the caller, and a write
// that Odoo does not confirm is only logged. A failing call aborts the loop and
// leaves earlier writes applied.
func (s session) save(ctx context.Context, entries []map[string]interface{}) Response {
	if entries == nil {
		return errorResponse(http.StatusBadRequest, "Missing passengers array", "")
	}

	rows, err := s.client.SearchRead(ctx, s.uid, s.passengerModel, passenger.TokenDomain(s.token), passenger.IDFields)
	if err != nil {
		s.logger.Error("Failed to resolve passenger ids for token", zap.Error(err))
		return internalError(err)
	}
	valid := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if id := row.ID(); id != 0 {
			valid[id] = true
		}
	}

	var written, skipped, unconfirmed int
	for _, entry := range entries {
		// Ids must be JSON numbers; quoted ids are skipped like any other bad id.
		id, ok := odoo.AsInt64(entry["id"])
		if !ok || !valid[id] {
			skipped++
			continue
		}

		values := passenger.ToInternal(entry)
		if len(values) == 0 {
			continue
		}

		confirmed, err := s.client.Write(ctx, s.uid, s.passengerModel, id, values)
		if err != nil {
			s.logger.Error("Failed to save passenger",
				zap.Error(err),
				zap.Int64("passenger_id", id),
				zap.Int("written", written),
			)
			return internalError(err)
		}
		if !confirmed {
			unconfirmed++
			s.logger.Warn("Odoo did not confirm passenger write", zap.Int64("passenger_id", id))
			continue
		}
		written++
	}

	s.logger.Info("Saved passengers",
		zap.Int("submitted", len(entries)),
		zap.Int("written", written),
		zap.Int("skipped", skipped),
		zap.Int("unconfirmed", unconfirmed),
	)
	return jsonResponse(http.StatusOK, okBody{Status: "ok"})
}
