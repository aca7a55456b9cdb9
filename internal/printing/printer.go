// Package printing turns issued tickets into paper. It sits outside the
// numbering core: a failed print never un-issues a ticket.
package printing

import (
	"context"
	"errors"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
)

const (
	MethodThermal = "thermal"
	MethodDialog  = "dialog"

	// TimestampLayout matches the id-ID locale rendering used on the kiosk.
	TimestampLayout = "02/01/2006, 15.04.05"
)

var (
	ErrNoDevice    = errors.New("no thermal printer found")
	ErrPrintFailed = errors.New("print failed")
)

// Job is a ticket formatted for printing.
type Job struct {
	QueueCode string
	CounterID string
	Category  string
	IssuedAt  string
}

// Result reports how a job was printed. Text is set when the ticket has to be
// printed by the operator through the browser print dialog.
type Result struct {
	Method  string `json:"method"`
	Device  string `json:"device,omitempty"`
	Message string `json:"message"`
	Text    string `json:"ticket_text,omitempty"`
}

type Printer interface {
	Print(ctx context.Context, job Job) (Result, error)
}

// Layout holds the fixed header lines printed above every ticket.
type Layout struct {
	Header    string
	Subheader string
}

func DefaultLayout() Layout {
	return Layout{Header: "PUSKESMAS MREBET", Subheader: "KAB. PURBALINGGA"}
}

func NewJob(ticket models.Ticket, loc *time.Location) Job {
	createdAt := ticket.CreatedAt
	if loc != nil {
		createdAt = createdAt.In(loc)
	}
	return Job{
		QueueCode: ticket.TicketCode,
		CounterID: ticket.CounterID,
		Category:  ticket.Category,
		IssuedAt:  createdAt.Format(TimestampLayout),
	}
}
