package postgres

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/ticketing"
	"github.com/Guesen/sistem-antrian-puskesmas/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var wib = time.FixedZone("WIB", 7*60*60)

func TestInsertDuplicateSequence(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	first, err := st.Insert(ctx, newTicket("A", "2026-10-15", 1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	_, err = st.Insert(ctx, newTicket("A", "2026-10-15", 1))
	if !errors.Is(err, store.ErrSequenceTaken) {
		t.Fatalf("expected ErrSequenceTaken, got %v", err)
	}
}

func TestCountListAndDelete(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	for _, tk := range []models.Ticket{
		newTicket("A", "2026-10-01", 1),
		newTicket("A", "2026-10-15", 1),
		newTicket("A", "2026-10-15", 2),
		newTicket("B", "2026-10-15", 1),
	} {
		if _, err := st.Insert(ctx, tk); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	count, err := st.CountForDay(ctx, "A", "2026-10-15")
	if err != nil || count != 2 {
		t.Fatalf("expected 2, got %d (%v)", count, err)
	}

	tickets, err := st.ListForDay(ctx, "2026-10-15")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 3 || tickets[0].TicketCode != "A001" || tickets[0].IssueDay != "2026-10-15" {
		t.Fatalf("unexpected listing: %+v", tickets)
	}

	removed, err := st.DeleteOlderThan(ctx, "2026-10-08")
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d (%v)", removed, err)
	}
	removed, err = st.DeleteForDay(ctx, "2026-10-15")
	if err != nil || removed != 3 {
		t.Fatalf("expected 3 removed, got %d (%v)", removed, err)
	}
}

func TestConcurrentIssueWithoutSerialization(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	allocator := ticketing.NewAllocator(st, ticketing.Options{Serialize: false, Location: wib})

	var wg sync.WaitGroup
	results := make(chan issueResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := allocator.IssueTicket(ctx, "A", "Pasien Umum")
			results <- issueResult{seq: ticket.SequenceNumber, err: err}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int]bool{}
	for result := range results {
		if result.err != nil {
			t.Fatalf("issue error: %v", result.err)
		}
		seen[result.seq] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected sequences 1 and 2, got %v", seen)
	}
}

func TestConcurrentIssueSerialized(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	allocator := ticketing.NewAllocator(st, ticketing.Options{Serialize: true, Location: wib})

	const n = 20
	var wg sync.WaitGroup
	results := make(chan issueResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := allocator.IssueTicket(ctx, "B", "Lansia")
			results <- issueResult{seq: ticket.SequenceNumber, err: err}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int]bool{}
	for result := range results {
		if result.err != nil {
			t.Fatalf("issue error: %v", result.err)
		}
		if seen[result.seq] {
			t.Fatalf("duplicate sequence %d", result.seq)
		}
		seen[result.seq] = true
	}
	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Fatalf("missing sequence %d", i)
		}
	}
}

type issueResult struct {
	seq int
	err error
}

func newTicket(counterID, day string, seq int) models.Ticket {
	createdAt, _ := time.ParseInLocation(store.DayLayout, day, wib)
	createdAt = createdAt.Add(8 * time.Hour)
	return models.Ticket{
		CounterID:      counterID,
		Category:       "Pasien Umum",
		SequenceNumber: seq,
		TicketCode:     ticketing.FormatCode(counterID, seq),
		IssueDay:       day,
		Status:         models.StatusWaiting,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := execOnce(ctx, dsn, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := Migrate(ctx, pool, migrations.Files); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = execOnce(context.Background(), dsn, "DROP SCHEMA "+schema+" CASCADE")
	}
	return NewStore(pool, Options{Location: wib}), pool, cleanup
}

func execOnce(ctx context.Context, dsn, statement string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, statement)
	return err
}

func TestMigrateAppliesEachVersionOnce(t *testing.T) {
	ctx := context.Background()
	_, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	up, err := fs.ReadFile(migrations.Files, "001_queue_tickets.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	files := fstest.MapFS{
		"001_queue_tickets.up.sql":   {Data: up},
		"002_add_called_at.up.sql":   {Data: []byte("ALTER TABLE queue_tickets ADD COLUMN called_at TIMESTAMPTZ;")},
		"002_add_called_at.down.sql": {Data: []byte("ALTER TABLE queue_tickets DROP COLUMN called_at;")},
	}

	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, pool, files); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}

	var version int64
	var dirty bool
	if err := pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty); err != nil {
		t.Fatalf("read schema_migrations: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("expected clean version 2, got %d dirty=%v", version, dirty)
	}
}
