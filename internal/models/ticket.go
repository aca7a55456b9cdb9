package models

import "time"

type Ticket struct {
	ID             int64     `json:"id"`
	CounterID      string    `json:"loket_type"`
	Category       string    `json:"patient_type"`
	SequenceNumber int       `json:"queue_number"`
	TicketCode     string    `json:"queue_code"`
	IssueDay       string    `json:"issue_day"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const StatusWaiting = "waiting"

// Counts is the per-loket number of tickets issued on one day.
type Counts struct {
	LoketA int `json:"loketA"`
	LoketB int `json:"loketB"`
}
