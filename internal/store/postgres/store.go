package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

type Store struct {
	pool     *pgxpool.Pool
	location *time.Location
}

type Options struct {
	// Location is applied to timestamps read back from the database.
	Location *time.Location
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	loc := options.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Store{pool: pool, location: loc}
}

func (s *Store) CountForDay(ctx context.Context, counterID, day string) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM queue_tickets
		WHERE counter_id = $1 AND issue_day = $2::date
	`, counterID, day)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) Insert(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO queue_tickets (
			counter_id, category, sequence_number, ticket_code, issue_day,
			status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5::date,$6,$7,$8)
		RETURNING id
	`, ticket.CounterID, ticket.Category, ticket.SequenceNumber, ticket.TicketCode, ticket.IssueDay,
		ticket.Status, ticket.CreatedAt, ticket.UpdatedAt)

	if err := row.Scan(&ticket.ID); err != nil {
		if isUniqueViolation(err) {
			return models.Ticket{}, store.ErrSequenceTaken
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListForDay(ctx context.Context, day string) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, counter_id, category, sequence_number, ticket_code, to_char(issue_day, 'YYYY-MM-DD'),
			status, created_at, updated_at
		FROM queue_tickets
		WHERE issue_day = $1::date
		ORDER BY id ASC
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := rows.Scan(&ticket.ID, &ticket.CounterID, &ticket.Category, &ticket.SequenceNumber, &ticket.TicketCode,
			&ticket.IssueDay, &ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return nil, err
		}
		ticket.CreatedAt = ticket.CreatedAt.In(s.location)
		ticket.UpdatedAt = ticket.UpdatedAt.In(s.location)
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoffDay string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM queue_tickets WHERE issue_day < $1::date`, cutoffDay)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteForDay(ctx context.Context, day string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM queue_tickets WHERE issue_day = $1::date`, day)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the pending migrations found in files. Applied versions
// are recorded in schema_migrations, so each file runs once per database.
func Migrate(ctx context.Context, pool *pgxpool.Pool, files fs.FS) error {
	source, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = source.Close()
		_ = db.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", current)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	final, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Printf("migrations applied from_version=%d to_version=%d", current, final)
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ store.TicketStore = (*Store)(nil)
