package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/hub"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/printing"
	"github.com/Guesen/sistem-antrian-puskesmas/internal/ticketing"
)

const resetMessage = "Antrian hari ini telah direset"

// QueueService is the ticket numbering core as seen by the HTTP boundary.
type QueueService interface {
	IssueTicket(ctx context.Context, counterID, category string) (models.Ticket, error)
	CurrentCounts(ctx context.Context) (models.Counts, error)
	TodayTickets(ctx context.Context) ([]models.Ticket, error)
	ResetToday(ctx context.Context) (int64, error)
}

type Publisher interface {
	Publish(eventType string, payload interface{}, meta hub.Subscription) error
}

type Handler struct {
	service   QueueService
	printer   printing.Printer
	publisher Publisher
	display   http.Handler
	location  *time.Location
	now       func() time.Time
}

type Options struct {
	Printer   printing.Printer
	Publisher Publisher
	// Display serves the push channel for display screens under /display/.
	Display  http.Handler
	Location *time.Location
	Now      func() time.Time
}

type createQueueRequest struct {
	LoketType   *string `json:"loket_type"`
	PatientType *string `json:"patient_type"`
}

type createQueueResponse struct {
	Success     bool   `json:"success"`
	QueueCode   string `json:"queue_code"`
	QueueNumber int    `json:"queue_number"`
	LoketType   string `json:"loket_type"`
	PatientType string `json:"patient_type"`
	Timestamp   string `json:"timestamp"`
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type todayResponse struct {
	Day     string          `json:"day"`
	Tickets []models.Ticket `json:"tickets"`
}

type printRequest struct {
	QueueCode   string `json:"queue_code"`
	LoketType   string `json:"loket_type"`
	PatientType string `json:"patient_type"`
	Timestamp   string `json:"timestamp"`
}

type printResponse struct {
	Success bool `json:"success"`
	printing.Result
}

type errorResponse struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(service QueueService, options Options) *Handler {
	loc := options.Location
	if loc == nil {
		loc = ticketing.DefaultLocation
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		service:   service,
		printer:   options.Printer,
		publisher: options.Publisher,
		display:   options.Display,
		location:  loc,
		now:       now,
	}
}

// Routes serves every endpoint both bare and under /api, the prefix the
// kiosk web UI calls.
func (h *Handler) Routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/queues", h.handleQueues)
	api.HandleFunc("/queues/current", h.handleCurrent)
	api.HandleFunc("/queues/today", h.handleToday)
	api.HandleFunc("/queues/reset", h.handleReset)
	api.HandleFunc("/queues/print", h.handlePrint)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/api/", http.StripPrefix("/api", api))
	mux.Handle("/queues", api)
	mux.Handle("/queues/", api)
	if h.display != nil {
		mux.Handle("/display/", h.display)
	}
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleQueues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	var req createQueueRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.LoketType == nil || req.PatientType == nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "loket_type and patient_type are required")
		return
	}

	// loket_type must match exactly; patient_type is stored as sent.
	loket := *req.LoketType
	patientType := *req.PatientType
	if !models.ValidCounter(loket) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "loket_type must be A or B")
		return
	}

	ticket, err := h.service.IssueTicket(r.Context(), loket, patientType)
	if err != nil {
		status, code, msg := mapError(err)
		log.Printf("issue ticket failed loket=%s request_id=%s err=%v", loket, requestID, err)
		writeError(w, requestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, createQueueResponse{
		Success:     true,
		QueueCode:   ticket.TicketCode,
		QueueNumber: ticket.SequenceNumber,
		LoketType:   ticket.CounterID,
		PatientType: ticket.Category,
		Timestamp:   ticket.CreatedAt.In(h.location).Format(time.RFC3339),
	})

	h.publish(hub.EventIssued, ticket, hub.Subscription{CounterID: ticket.CounterID}, true)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.service.CurrentCounts(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFrom(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tickets, err := h.service.TodayTickets(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFrom(r), status, code, msg)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, todayResponse{
		Day:     ticketing.DayOf(h.now(), h.location),
		Tickets: tickets,
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, err := h.service.ResetToday(r.Context()); err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFrom(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Success: true, Message: resetMessage})

	h.publish(hub.EventReset, resetResponse{Success: true, Message: resetMessage}, hub.Subscription{}, true)
}

func (h *Handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)
	if h.printer == nil {
		writeError(w, requestID, http.StatusServiceUnavailable, "printer_unavailable", "printing is not configured")
		return
	}

	var req printRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.QueueCode = strings.TrimSpace(req.QueueCode)
	req.Timestamp = strings.TrimSpace(req.Timestamp)
	if req.QueueCode == "" || !models.ValidCounter(req.LoketType) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "queue_code and loket_type A or B are required")
		return
	}

	issuedAt := h.now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, requestID, http.StatusBadRequest, "invalid_request", "timestamp must be RFC 3339")
			return
		}
		issuedAt = parsed
	}

	job := printing.NewJob(models.Ticket{
		TicketCode: req.QueueCode,
		CounterID:  req.LoketType,
		Category:   req.PatientType,
		CreatedAt:  issuedAt,
	}, h.location)

	result, err := h.printer.Print(r.Context(), job)
	if err != nil {
		log.Printf("print failed code=%s request_id=%s err=%v", req.QueueCode, requestID, err)
		writeError(w, requestID, http.StatusBadGateway, "print_failed", "ticket could not be printed")
		return
	}
	writeJSON(w, http.StatusOK, printResponse{Success: true, Result: result})
}

// publish pushes an event to display screens after the response is written.
// With withCounts a fresh counts snapshot follows the event.
func (h *Handler) publish(eventType string, payload interface{}, meta hub.Subscription, withCounts bool) {
	if h.publisher == nil {
		return
	}
	go func() {
		if err := h.publisher.Publish(eventType, payload, meta); err != nil {
			log.Printf("publish event failed type=%s err=%v", eventType, err)
			return
		}
		if !withCounts {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		counts, err := h.service.CurrentCounts(ctx)
		if err != nil {
			log.Printf("publish counts failed err=%v", err)
			return
		}
		if err := h.publisher.Publish(hub.EventCounts, counts, hub.Subscription{}); err != nil {
			log.Printf("publish event failed type=%s err=%v", hub.EventCounts, err)
		}
	}()
}

func requestIDFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ticketing.ErrValidation):
		return http.StatusBadRequest, "invalid_request", "loket_type must be A or B"
	case errors.Is(err, ticketing.ErrPersistence):
		return http.StatusInternalServerError, "persistence_error", "queue data could not be saved"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_cancelled", "request was cancelled"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
