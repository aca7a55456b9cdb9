// Package sqlite stores tickets in a local SQLite file, for single-machine
// kiosk deployments.
package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ticketRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	CounterID      string    `gorm:"size:1;not null;uniqueIndex:idx_queue_tickets_sequence,priority:1"`
	Category       string    `gorm:"not null"`
	SequenceNumber int       `gorm:"not null;uniqueIndex:idx_queue_tickets_sequence,priority:3"`
	TicketCode     string    `gorm:"size:16;not null"`
	IssueDay       string    `gorm:"size:10;not null;uniqueIndex:idx_queue_tickets_sequence,priority:2;index:idx_queue_tickets_issue_day"`
	Status         string    `gorm:"size:16;not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (ticketRow) TableName() string { return "queue_tickets" }

type Store struct {
	db       *gorm.DB
	location *time.Location
}

type Options struct {
	Location *time.Location
}

// Open opens (creating if needed) the database file at path and migrates the
// schema.
func Open(path string, options Options) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&ticketRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	loc := options.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, location: loc}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CountForDay(ctx context.Context, counterID, day string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ticketRow{}).
		Where("counter_id = ? AND issue_day = ?", counterID, day).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *Store) Insert(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	row := ticketRow{
		CounterID:      ticket.CounterID,
		Category:       ticket.Category,
		SequenceNumber: ticket.SequenceNumber,
		TicketCode:     ticket.TicketCode,
		IssueDay:       ticket.IssueDay,
		Status:         ticket.Status,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return models.Ticket{}, store.ErrSequenceTaken
		}
		return models.Ticket{}, err
	}
	ticket.ID = row.ID
	return ticket, nil
}

func (s *Store) ListForDay(ctx context.Context, day string) ([]models.Ticket, error) {
	var rows []ticketRow
	err := s.db.WithContext(ctx).
		Where("issue_day = ?", day).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	tickets := make([]models.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, models.Ticket{
			ID:             row.ID,
			CounterID:      row.CounterID,
			Category:       row.Category,
			SequenceNumber: row.SequenceNumber,
			TicketCode:     row.TicketCode,
			IssueDay:       row.IssueDay,
			Status:         row.Status,
			CreatedAt:      row.CreatedAt.In(s.location),
			UpdatedAt:      row.UpdatedAt.In(s.location),
		})
	}
	return tickets, nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoffDay string) (int64, error) {
	result := s.db.WithContext(ctx).Where("issue_day < ?", cutoffDay).Delete(&ticketRow{})
	return result.RowsAffected, result.Error
}

func (s *Store) DeleteForDay(ctx context.Context, day string) (int64, error) {
	result := s.db.WithContext(ctx).Where("issue_day = ?", day).Delete(&ticketRow{})
	return result.RowsAffected, result.Error
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ store.TicketStore = (*Store)(nil)
