// Package ticketing allocates per-loket daily ticket numbers.
//
// The allocator keeps no counter state of its own: every call derives the
// local day from the clock and re-reads the store. Uniqueness of
// (loket, day, sequence) is enforced by the store; a conflicting insert is
// retried once. With Serialize set, calls in one process also run one at a
// time, so concurrent callers never race each other.
package ticketing

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxIssueAttempts = 2

var (
	ticketsIssued     = expvar.NewInt("tickets_issued_total")
	sequenceConflicts = expvar.NewInt("sequence_conflicts_total")

	tracer = otel.Tracer("github.com/Guesen/sistem-antrian-puskesmas/internal/ticketing")
)

type Options struct {
	Location            *time.Location
	Now                 func() time.Time
	RetentionDays       int
	DisableRequestSweep bool
	Serialize           bool
}

type Allocator struct {
	store     store.TicketStore
	sweeper   *Sweeper
	location  *time.Location
	now       func() time.Time
	sweep     bool
	serialize bool
	mu        sync.Mutex
}

func NewAllocator(st store.TicketStore, options Options) *Allocator {
	loc := options.Location
	if loc == nil {
		loc = DefaultLocation
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Allocator{
		store:     st,
		sweeper:   NewSweeper(st, loc, options.RetentionDays),
		location:  loc,
		now:       now,
		sweep:     !options.DisableRequestSweep,
		serialize: options.Serialize,
	}
}

func (a *Allocator) Sweeper() *Sweeper {
	return a.sweeper
}

func (a *Allocator) Location() *time.Location {
	return a.location
}

func (a *Allocator) IssueTicket(ctx context.Context, counterID, category string) (models.Ticket, error) {
	ctx, span := tracer.Start(ctx, "ticketing.IssueTicket", trace.WithAttributes(attribute.String("queue.loket", counterID)))
	defer span.End()

	if !models.ValidCounter(counterID) {
		err := fmt.Errorf("%w: loket_type must be A or B, got %q", ErrValidation, counterID)
		span.SetStatus(codes.Error, err.Error())
		return models.Ticket{}, err
	}

	a.maybeSweep(ctx, a.now())

	a.lock()
	defer a.unlock()

	// Read the clock under the lock so created_at follows sequence order.
	now := a.now().In(a.location)
	today := now.Format(store.DayLayout)

	var lastErr error
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		ticket, err := a.allocate(ctx, counterID, category, now, today)
		if err == nil {
			ticketsIssued.Add(1)
			span.SetAttributes(attribute.String("queue.code", ticket.TicketCode))
			return ticket, nil
		}
		lastErr = err
		if !errors.Is(err, store.ErrSequenceTaken) {
			break
		}
		sequenceConflicts.Add(1)
		log.Printf("sequence conflict loket=%s day=%s attempt=%d", counterID, today, attempt)
	}

	err := fmt.Errorf("%w: loket %s: %w", ErrPersistence, counterID, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "ticket not issued")
	return models.Ticket{}, err
}

func (a *Allocator) allocate(ctx context.Context, counterID, category string, now time.Time, today string) (models.Ticket, error) {
	count, err := a.store.CountForDay(ctx, counterID, today)
	if err != nil {
		return models.Ticket{}, err
	}
	sequence := count + 1
	return a.store.Insert(ctx, models.Ticket{
		CounterID:      counterID,
		Category:       category,
		SequenceNumber: sequence,
		TicketCode:     FormatCode(counterID, sequence),
		IssueDay:       today,
		Status:         models.StatusWaiting,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// CurrentCounts returns how many tickets each loket has issued today.
func (a *Allocator) CurrentCounts(ctx context.Context) (models.Counts, error) {
	ctx, span := tracer.Start(ctx, "ticketing.CurrentCounts")
	defer span.End()

	now := a.now().In(a.location)
	today := now.Format(store.DayLayout)
	a.maybeSweep(ctx, now)

	var counts models.Counts
	for _, counterID := range models.Counters {
		count, err := a.store.CountForDay(ctx, counterID, today)
		if err != nil {
			err = fmt.Errorf("%w: count loket %s: %w", ErrPersistence, counterID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "count failed")
			return models.Counts{}, err
		}
		switch counterID {
		case models.CounterA:
			counts.LoketA = count
		case models.CounterB:
			counts.LoketB = count
		}
	}
	return counts, nil
}

func (a *Allocator) TodayTickets(ctx context.Context) ([]models.Ticket, error) {
	now := a.now().In(a.location)
	a.maybeSweep(ctx, now)

	tickets, err := a.store.ListForDay(ctx, now.Format(store.DayLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: list tickets: %w", ErrPersistence, err)
	}
	for i := range tickets {
		tickets[i].CreatedAt = tickets[i].CreatedAt.In(a.location)
		tickets[i].UpdatedAt = tickets[i].UpdatedAt.In(a.location)
	}
	return tickets, nil
}

// ResetToday deletes every ticket issued today on both lokets, so the next
// ticket of the day starts again at 1. It cannot be undone.
func (a *Allocator) ResetToday(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "ticketing.ResetToday")
	defer span.End()

	today := DayOf(a.now(), a.location)

	a.lock()
	defer a.unlock()

	removed, err := a.store.DeleteForDay(ctx, today)
	if err != nil {
		err = fmt.Errorf("%w: reset %s: %w", ErrPersistence, today, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "reset failed")
		return 0, err
	}
	log.Printf("queue reset day=%s removed=%d", today, removed)
	return removed, nil
}

func (a *Allocator) maybeSweep(ctx context.Context, now time.Time) {
	if a.sweep {
		a.sweeper.Sweep(ctx, now)
	}
}

func (a *Allocator) lock() {
	if a.serialize {
		a.mu.Lock()
	}
}

func (a *Allocator) unlock() {
	if a.serialize {
		a.mu.Unlock()
	}
}
