package appointment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// StatusNotifier is told about appointment lifecycle changes so reminders and
// confirmations can fan out over email/SMS. Delivery is best-effort.
type StatusNotifier interface {
	AppointmentStatusChanged(clientID, appointmentID uint, status string)
}

type AppointmentHandler struct {
	db       *gorm.DB
	notifier StatusNotifier

	mu          sync.Mutex
	expertLocks map[uint]*sync.Mutex
}

func NewAppointmentHandler(db *gorm.DB, notifier StatusNotifier) *AppointmentHandler {
	return &AppointmentHandler{
		db:          db,
		notifier:    notifier,
		expertLocks: make(map[uint]*sync.Mutex),
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/appointments/create", h.CreateAppointment).Methods("POST")
	router.HandleFunc("/appointments/schedule/expert", h.ReplaceExpertSchedule).Methods("POST")
	router.HandleFunc("/appointments/schedule/expert/{expertId}", h.GetExpertSchedule).Methods("GET")
	router.HandleFunc("/appointments/status/{id}", h.UpdateAppointmentStatus).Methods("PATCH")
	router.HandleFunc("/appointments/expert/{expertId}", h.GetExpertAppointments).Methods("GET")
	router.HandleFunc("/appointments/client/{clientId}", h.GetClientAppointments).Methods("GET")
}

// expertLock serializes the validate-then-insert sequence per expert so two
// concurrent requests cannot both pass the overlap check and double-book.
func (h *AppointmentHandler) expertLock(expertID uint) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.expertLocks[expertID]
	if !ok {
		lock = &sync.Mutex{}
		h.expertLocks[expertID] = lock
	}
	return lock
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var bookingRequest struct {
		ClientID  uint   `json:"client_id"`
		ExpertID  uint   `json:"expert_id"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Type      string `json:"type"`
		Notes     string `json:"notes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	startTime, err := time.Parse(time.RFC3339, bookingRequest.StartTime)
	if err != nil {
		http.Error(w, "Invalid start_time. Use RFC 3339", http.StatusBadRequest)
		return
	}
	endTime, err := time.Parse(time.RFC3339, bookingRequest.EndTime)
	if err != nil {
		http.Error(w, "Invalid end_time. Use RFC 3339", http.StatusBadRequest)
		return
	}
	if !startTime.Before(endTime) {
		http.Error(w, "End time must be after start time", http.StatusBadRequest)
		return
	}
	if bookingRequest.Type != models.TypeOnline && bookingRequest.Type != models.TypeInPerson {
		http.Error(w, "Invalid appointment type", http.StatusBadRequest)
		return
	}

	lock := h.expertLock(bookingRequest.ExpertID)
	lock.Lock()
	defer lock.Unlock()

	tx := h.db.Begin()

	var expert models.Expert
	if err := tx.First(&expert, bookingRequest.ExpertID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Expert not found", http.StatusNotFound)
		return
	}

	if err := ValidateBooking(tx, &expert, startTime, endTime); err != nil {
		tx.Rollback()
		switch {
		case errors.Is(err, ErrSlotConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrExpertUnavailable):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Error validating appointment", http.StatusInternalServerError)
		}
		return
	}

	appointment := models.Appointment{
		ClientID:  bookingRequest.ClientID,
		ExpertID:  bookingRequest.ExpertID,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    models.StatusPending,
		Type:      bookingRequest.Type,
		Notes:     bookingRequest.Notes,
	}
	if bookingRequest.Type == models.TypeOnline {
		appointment.MeetingLink = generateMeetingLink()
	}

	if err := tx.Create(&appointment).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating appointment", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing booking", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Client").Preload("Expert").First(&appointment, appointment.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "Appointment created successfully",
		"appointment": appointment,
	})
}

// UpdateAppointmentStatus moves an appointment through its lifecycle. Only
// transitions in the status table are accepted; CANCELLED and COMPLETED are
// terminal. The cancel reason is kept only when cancelling.
func (h *AppointmentHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var statusUpdate struct {
		Status       string `json:"status"`
		CancelReason string `json:"cancel_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidStatus(statusUpdate.Status) {
		http.Error(w, "Invalid status value", http.StatusBadRequest)
		return
	}

	var appointment models.Appointment
	if err := h.db.First(&appointment, appointmentID).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	if !models.CanTransition(appointment.Status, statusUpdate.Status) {
		http.Error(w, fmt.Sprintf("Cannot transition appointment from %s to %s",
			appointment.Status, statusUpdate.Status), http.StatusConflict)
		return
	}

	appointment.Status = statusUpdate.Status
	if statusUpdate.Status == models.StatusCancelled {
		appointment.CancelReason = statusUpdate.CancelReason
	} else {
		appointment.CancelReason = ""
	}

	if err := h.db.Save(&appointment).Error; err != nil {
		http.Error(w, "Error updating appointment", http.StatusInternalServerError)
		return
	}

	if h.notifier != nil {
		go h.notifier.AppointmentStatusChanged(appointment.ClientID, appointment.ID, appointment.Status)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "Appointment status updated",
		"appointment": appointment,
	})
}

// GetExpertAppointments returns the expert's appointments ordered by start time.
func (h *AppointmentHandler) GetExpertAppointments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid expert ID", http.StatusBadRequest)
		return
	}

	var appointments []models.Appointment
	if err := h.db.Where("expert_id = ?", expertID).
		Order("start_time ASC").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointments)
}

// GetClientAppointments returns the client's appointments ordered by start time.
func (h *AppointmentHandler) GetClientAppointments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	clientID, err := strconv.ParseUint(vars["clientId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}

	var appointments []models.Appointment
	if err := h.db.Where("client_id = ?", clientID).
		Order("start_time ASC").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointments)
}

const meetingTokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateMeetingLink builds an opaque meeting URL for remote sessions.
// Uniqueness is best-effort; the token is not reserved anywhere.
func generateMeetingLink() string {
	token := make([]byte, 9)
	for i := range token {
		token[i] = meetingTokenAlphabet[rand.Intn(len(meetingTokenAlphabet))]
	}
	return fmt.Sprintf("meet.counselease.com/%s", token)
}
