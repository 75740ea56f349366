package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/georgivlv/passenger-portal/internal/passenger"
)

type loadBody struct {
	Status     string                `json:"status"`
	Departure  *passenger.Departure  `json:"departure"`
	Passengers []passenger.Passenger `json:"passengers"`
}

// load returns every passenger of the token plus the departure referenced by
// the first record.
func (s session) load(ctx context.Context) Response {
	records, err := s.client.SearchRead(ctx, s.uid, s.passengerModel, passenger.TokenDomain(s.token), passenger.LoadFields)
	if err != nil {
		s.logger.Error("Failed to load passengers", zap.Error(err))
		return internalError(err)
	}
	if len(records) == 0 {
		return jsonResponse(http.StatusNotFound, notFoundBody{
			Status:  "not_found",
			Message: "No passengers found for this booking",
		})
	}

	var departure *passenger.Departure
	if ref, ok := passenger.DepartureRef(records[0]); ok {
		// One departure per token is assumed; a mixed booking is logged and
		// answered with the first record's departure.
		for _, rec := range records[1:] {
			if other, ok := passenger.DepartureRef(rec); ok && other.ID != ref.ID {
				s.logger.Warn("Booking references more than one departure",
					zap.Int64("departure_id", ref.ID),
					zap.Int64("other_departure_id", other.ID),
				)
				break
			}
		}

		rows, err := s.client.SearchRead(ctx, s.uid, s.departureModel, passenger.IDDomain(ref.ID), passenger.DepartureFields)
		if err != nil {
			s.logger.Error("Failed to load departure", zap.Error(err), zap.Int64("departure_id", ref.ID))
			return internalError(err)
		}
		if len(rows) > 0 {
			d := passenger.DepartureFromRecord(rows[0])
			departure = &d
		} else {
			departure = &passenger.Departure{ID: ref.ID, Name: ref.Name}
		}
	}

	passengers := make([]passenger.Passenger, 0, len(records))
	for _, rec := range records {
		passengers = append(passengers, passenger.ToExternal(rec))
	}

	s.logger.Info("Loaded passengers", zap.Int("passengers", len(passengers)))
	return jsonResponse(http.StatusOK, loadBody{
		Status:     "ok",
		Departure:  departure,
		Passengers: passengers,
	})
}
