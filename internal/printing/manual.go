package printing

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
)

const ticketWidth = 40

// ManualPrinter hands the ticket back as text for the browser print dialog.
// It never fails.
type ManualPrinter struct {
	layout Layout
}

func NewManualPrinter(layout Layout) *ManualPrinter {
	return &ManualPrinter{layout: layout}
}

func (p *ManualPrinter) Print(ctx context.Context, job Job) (Result, error) {
	return Result{
		Method:  MethodDialog,
		Message: "Gunakan dialog cetak",
		Text:    RenderText(p.layout, job),
	}, nil
}

// RenderText lays the ticket out as centered plain text.
func RenderText(layout Layout, job Job) string {
	rule := strings.Repeat("-", ticketWidth)
	loket := "Loket " + job.CounterID
	if label := models.CounterLabel(job.CounterID); label != "" {
		loket += " - " + label
	}

	lines := []string{
		center(layout.Header),
		center(layout.Subheader),
		rule,
		center("NOMOR ANTRIAN"),
		"",
		center(job.QueueCode),
		"",
		center(loket),
	}
	if job.Category != "" {
		lines = append(lines, center("Jenis: "+job.Category))
	}
	lines = append(lines,
		rule,
		center("Terima kasih atas kunjungan Anda."),
		center("Jaga selalu kesehatan Anda dan keluarga."),
		"",
		center(job.IssuedAt),
	)
	return strings.Join(lines, "\n") + "\n"
}

func center(s string) string {
	width := utf8.RuneCountInString(s)
	if width >= ticketWidth {
		return s
	}
	return strings.Repeat(" ", (ticketWidth-width)/2) + s
}
