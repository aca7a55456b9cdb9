package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"
)

type sequenceKey struct {
	counterID string
	day       string
	sequence  int
}

// Store keeps tickets in process memory. Nothing survives a restart.
type Store struct {
	mu      sync.Mutex
	lastID  int64
	tickets map[int64]models.Ticket
	keys    map[sequenceKey]int64
}

func NewStore() *Store {
	return &Store{
		tickets: make(map[int64]models.Ticket),
		keys:    make(map[sequenceKey]int64),
	}
}

func (s *Store) CountForDay(ctx context.Context, counterID, day string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, ticket := range s.tickets {
		if ticket.CounterID == counterID && ticket.IssueDay == day {
			count++
		}
	}
	return count, nil
}

func (s *Store) Insert(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return models.Ticket{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sequenceKey{counterID: ticket.CounterID, day: ticket.IssueDay, sequence: ticket.SequenceNumber}
	if _, exists := s.keys[key]; exists {
		return models.Ticket{}, store.ErrSequenceTaken
	}
	s.lastID++
	ticket.ID = s.lastID
	s.tickets[ticket.ID] = ticket
	s.keys[key] = ticket.ID
	return ticket, nil
}

func (s *Store) ListForDay(ctx context.Context, day string) ([]models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var tickets []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.IssueDay == day {
			tickets = append(tickets, ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoffDay string) (int64, error) {
	return s.deleteWhere(ctx, func(day string) bool { return day < cutoffDay })
}

func (s *Store) DeleteForDay(ctx context.Context, day string) (int64, error) {
	return s.deleteWhere(ctx, func(issueDay string) bool { return issueDay == day })
}

func (s *Store) deleteWhere(ctx context.Context, match func(day string) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, ticket := range s.tickets {
		if !match(ticket.IssueDay) {
			continue
		}
		delete(s.tickets, id)
		delete(s.keys, sequenceKey{counterID: ticket.CounterID, day: ticket.IssueDay, sequence: ticket.SequenceNumber})
		removed++
	}
	return removed, nil
}

var _ store.TicketStore = (*Store)(nil)
