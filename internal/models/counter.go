package models

const (
	CounterA = "A"
	CounterB = "B"
)

// Counters lists every loket in display order.
var Counters = []string{CounterA, CounterB}

var counterLabels = map[string]string{
	CounterA: "Pasien Umum",
	CounterB: "Balita Ibu Hamil dan Lansia",
}

func ValidCounter(counterID string) bool {
	_, ok := counterLabels[counterID]
	return ok
}

// CounterLabel returns the patient group served at a loket, as printed on tickets.
func CounterLabel(counterID string) string {
	return counterLabels[counterID]
}
