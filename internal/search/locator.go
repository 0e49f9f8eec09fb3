package search

import (
	"context"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
)

// ReportedLocator passes through a fix the client already obtained. A nil
// position yields a GeolocationError carrying the client's reason.
type ReportedLocator struct {
	Position *models.Position
	Reason   string
}

func (l ReportedLocator) Locate(ctx context.Context) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, domain.GeolocationError{Reason: domain.GeolocationTimeout, Err: err}
	}
	if l.Position == nil {
		return models.Position{}, domain.GeolocationError{Reason: domain.ParseGeolocationReason(l.Reason)}
	}
	return *l.Position, nil
}
