package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/aayseekaya/CounselEase/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	db     *gorm.DB
	mailer Mailer
	texter Texter
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{
		db:     db,
		mailer: NewSMTPMailer(),
		texter: NewTwilioTexter(),
	}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	notificationRouter := router.PathPrefix("/notifications").Subrouter()

	notificationRouter.HandleFunc("/send", utils.AuthMiddleware(h.SendNotification)).Methods("POST")
	notificationRouter.HandleFunc("/reminder/appointment", utils.AuthMiddleware(h.CreateAppointmentReminder)).Methods("POST")
	notificationRouter.HandleFunc("/history/{userId:[0-9]+}", utils.AuthMiddleware(h.GetNotificationHistory)).Methods("GET")
}

// SendNotification persists the notification and dispatches it over the
// requested channels. Delivery failures are recorded on the row but never
// fail the request that triggered them.
func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var notificationRequest struct {
		UserID   uint              `json:"user_id"`
		Type     string            `json:"type"`
		Channel  string            `json:"channel"`
		Title    string            `json:"title"`
		Content  string            `json:"content"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&notificationRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch notificationRequest.Channel {
	case models.ChannelEmail, models.ChannelSMS, models.ChannelBoth:
	default:
		http.Error(w, "Channel must be EMAIL, SMS or BOTH", http.StatusBadRequest)
		return
	}

	metadata := ""
	if notificationRequest.Metadata != nil {
		raw, _ := json.Marshal(notificationRequest.Metadata)
		metadata = string(raw)
	}

	notification := models.Notification{
		UserID:   notificationRequest.UserID,
		Type:     notificationRequest.Type,
		Channel:  notificationRequest.Channel,
		Title:    notificationRequest.Title,
		Content:  notificationRequest.Content,
		Status:   models.NotificationPending,
		Metadata: metadata,
	}
	if err := h.db.Create(&notification).Error; err != nil {
		http.Error(w, "Error creating notification", http.StatusInternalServerError)
		return
	}

	h.process(&notification)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":      "Notification queued",
		"notification": notification,
	})
}

// CreateAppointmentReminder records a 24-hour appointment reminder. Delivery
// is picked up later; this endpoint only creates the pending row.
func (h *NotificationHandler) CreateAppointmentReminder(w http.ResponseWriter, r *http.Request) {
	var reminderRequest struct {
		AppointmentID   uint   `json:"appointment_id"`
		UserID          uint   `json:"user_id"`
		AppointmentTime string `json:"appointment_time"`
		ExpertName      string `json:"expert_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reminderRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appointmentTime, err := time.Parse(time.RFC3339, reminderRequest.AppointmentTime)
	if err != nil {
		http.Error(w, "Invalid appointment_time. Use RFC 3339", http.StatusBadRequest)
		return
	}

	metadata, _ := json.Marshal(map[string]uint{"appointment_id": reminderRequest.AppointmentID})
	reminder := models.Notification{
		UserID:  reminderRequest.UserID,
		Type:    "APPOINTMENT_REMINDER",
		Channel: models.ChannelBoth,
		Title:   "Appointment Reminder",
		Content: fmt.Sprintf("Your appointment with %s on %s is 24 hours away.",
			reminderRequest.ExpertName, appointmentTime.Format("02 Jan 2006 15:04")),
		Status:   models.NotificationPending,
		Metadata: string(metadata),
	}
	if err := h.db.Create(&reminder).Error; err != nil {
		http.Error(w, "Error creating reminder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Appointment reminder created",
		"reminder": reminder,
	})
}

// GetNotificationHistory lists the user's notifications, newest first.
func (h *NotificationHandler) GetNotificationHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var notifications []models.Notification
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&notifications).Error; err != nil {
		http.Error(w, "Error retrieving notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
}

// AppointmentStatusChanged lets the booking flow fan out a status email
// without the appointment package knowing about channels or transports.
func (h *NotificationHandler) AppointmentStatusChanged(clientID, appointmentID uint, status string) {
	metadata, _ := json.Marshal(map[string]interface{}{"appointment_id": appointmentID})
	notification := models.Notification{
		UserID:   clientID,
		Type:     "APPOINTMENT_STATUS",
		Channel:  models.ChannelEmail,
		Title:    "Appointment Update",
		Content:  fmt.Sprintf("Your appointment status changed to %s.", status),
		Status:   models.NotificationPending,
		Metadata: string(metadata),
	}
	if err := h.db.Create(&notification).Error; err != nil {
		log.Printf("Error creating status notification: %v", err)
		return
	}
	h.process(&notification)
}

// process delivers the notification over its channels and settles its status.
func (h *NotificationHandler) process(notification *models.Notification) {
	var user models.User
	if err := h.db.First(&user, notification.UserID).Error; err != nil {
		h.markFailed(notification, fmt.Errorf("user not found"))
		return
	}

	if notification.Channel == models.ChannelEmail || notification.Channel == models.ChannelBoth {
		if err := h.mailer.Send(user.Email, notification.Title, notification.Content); err != nil {
			log.Printf("Error sending notification email: %v", err)
			h.markFailed(notification, err)
			return
		}
	}

	if notification.Channel == models.ChannelSMS || notification.Channel == models.ChannelBoth {
		if user.Phone == "" {
			h.markFailed(notification, fmt.Errorf("user has no phone number"))
			return
		}
		if err := h.texter.Send(user.Phone, notification.Content); err != nil {
			log.Printf("Error sending notification SMS: %v", err)
			h.markFailed(notification, err)
			return
		}
	}

	notification.Status = models.NotificationSent
	notification.SentAt = time.Now()
	if err := h.db.Save(notification).Error; err != nil {
		log.Printf("Error updating notification: %v", err)
	}
}

func (h *NotificationHandler) markFailed(notification *models.Notification, cause error) {
	notification.Status = models.NotificationFailed
	metadata, _ := json.Marshal(map[string]string{"error": cause.Error()})
	notification.Metadata = string(metadata)
	if err := h.db.Save(notification).Error; err != nil {
		log.Printf("Error updating notification: %v", err)
	}
}
