package store

import (
	"context"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
)

// DayLayout is the civil date format used for issue days and cutoffs.
const DayLayout = "2006-01-02"

type TicketStore interface {
	CountForDay(ctx context.Context, counterID, day string) (int, error)
	Insert(ctx context.Context, ticket models.Ticket) (models.Ticket, error)
	ListForDay(ctx context.Context, day string) ([]models.Ticket, error)
	DeleteOlderThan(ctx context.Context, cutoffDay string) (int64, error)
	DeleteForDay(ctx context.Context, day string) (int64, error)
}
