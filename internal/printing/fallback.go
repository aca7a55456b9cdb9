package printing

import (
	"context"
	"errors"
	"expvar"
	"log"
)

var printFallbacks = expvar.NewInt("print_fallbacks_total")

// FallbackPrinter tries Primary and hands the job to Fallback when it fails.
type FallbackPrinter struct {
	Primary  Printer
	Fallback Printer
}

func (p FallbackPrinter) Print(ctx context.Context, job Job) (Result, error) {
	result, err := p.Primary.Print(ctx, job)
	if err == nil {
		return result, nil
	}
	printFallbacks.Add(1)
	log.Printf("thermal print unavailable code=%s err=%v, falling back to dialog", job.QueueCode, err)

	result, fallbackErr := p.Fallback.Print(ctx, job)
	if fallbackErr != nil {
		return Result{}, errors.Join(err, fallbackErr)
	}
	result.Message = "Printer thermal tidak tersedia: " + err.Error() + ". Gunakan dialog cetak."
	return result, nil
}

type Config struct {
	Device     string
	Autodetect bool
	Layout     Layout
	Patterns   []string
}

// Select picks the printer for this machine: an explicit device, device
// autodetection, or the print dialog alone.
func Select(cfg Config) Printer {
	manual := NewManualPrinter(cfg.Layout)
	switch {
	case cfg.Device != "":
		log.Printf("printer device=%s", cfg.Device)
		return FallbackPrinter{Primary: NewDevicePrinter(cfg.Layout, []string{cfg.Device}, nil), Fallback: manual}
	case cfg.Autodetect:
		log.Printf("printer autodetect patterns=%v", patternsOrDefault(cfg.Patterns))
		return FallbackPrinter{Primary: NewDevicePrinter(cfg.Layout, nil, cfg.Patterns), Fallback: manual}
	default:
		log.Printf("printer thermal disabled, using print dialog")
		return manual
	}
}

func patternsOrDefault(patterns []string) []string {
	if len(patterns) == 0 {
		return DefaultDevicePatterns
	}
	return patterns
}
