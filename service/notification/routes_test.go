package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeTexter struct {
	sent []string
	err  error
}

func (t *fakeTexter) Send(to, content string) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, to)
	return nil
}

func newTestHandler(t *testing.T) (*gorm.DB, *NotificationHandler, *fakeMailer, *fakeTexter) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Notification{}); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	mailer := &fakeMailer{}
	texter := &fakeTexter{}
	handler := &NotificationHandler{db: db, mailer: mailer, texter: texter}
	return db, handler, mailer, texter
}

func createUser(t *testing.T, db *gorm.DB, phone string) *models.User {
	t.Helper()

	user := models.User{
		FullName:     "Test Client",
		Email:        fmt.Sprintf("client-%s@example.com", t.Name()),
		PasswordHash: "x",
		UserType:     models.UserTypeClient,
		Phone:        phone,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return &user
}

func doJSON(t *testing.T, handler *NotificationHandler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)

	claims := &jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendNotification_Email(t *testing.T) {
	db, handler, mailer, texter := newTestHandler(t)
	user := createUser(t, db, "")

	rec := doJSON(t, handler, http.MethodPost, "/notifications/send", map[string]interface{}{
		"user_id": user.ID,
		"type":    "GENERAL",
		"channel": models.ChannelEmail,
		"title":   "Welcome",
		"content": "Welcome to CounselEase",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != user.Email {
		t.Fatalf("expected one email to %s, got %v", user.Email, mailer.sent)
	}
	if len(texter.sent) != 0 {
		t.Fatalf("expected no SMS on EMAIL channel, got %v", texter.sent)
	}

	var notification models.Notification
	if err := db.Where("user_id = ?", user.ID).First(&notification).Error; err != nil {
		t.Fatalf("loading notification: %v", err)
	}
	if notification.Status != models.NotificationSent {
		t.Fatalf("expected SENT, got %s", notification.Status)
	}
	if notification.SentAt.IsZero() {
		t.Fatal("expected sent_at to be set")
	}
}

func TestSendNotification_BothChannels(t *testing.T) {
	db, handler, mailer, texter := newTestHandler(t)
	user := createUser(t, db, "+905551112233")

	rec := doJSON(t, handler, http.MethodPost, "/notifications/send", map[string]interface{}{
		"user_id": user.ID,
		"type":    "GENERAL",
		"channel": models.ChannelBoth,
		"title":   "Reminder",
		"content": "See you tomorrow",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(mailer.sent) != 1 || len(texter.sent) != 1 {
		t.Fatalf("expected both channels used, got email=%v sms=%v", mailer.sent, texter.sent)
	}
	if texter.sent[0] != "+905551112233" {
		t.Fatalf("SMS sent to wrong number: %s", texter.sent[0])
	}
}

func TestSendNotification_SMSWithoutPhoneFails(t *testing.T) {
	db, handler, _, texter := newTestHandler(t)
	user := createUser(t, db, "")

	rec := doJSON(t, handler, http.MethodPost, "/notifications/send", map[string]interface{}{
		"user_id": user.ID,
		"type":    "GENERAL",
		"channel": models.ChannelSMS,
		"title":   "Reminder",
		"content": "See you tomorrow",
	})
	// Delivery failure does not fail the request.
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(texter.sent) != 0 {
		t.Fatalf("expected no SMS without a phone number, got %v", texter.sent)
	}

	var notification models.Notification
	if err := db.Where("user_id = ?", user.ID).First(&notification).Error; err != nil {
		t.Fatalf("loading notification: %v", err)
	}
	if notification.Status != models.NotificationFailed {
		t.Fatalf("expected FAILED, got %s", notification.Status)
	}
	if !strings.Contains(notification.Metadata, "phone") {
		t.Fatalf("expected failure cause in metadata, got %q", notification.Metadata)
	}
}

func TestSendNotification_MailerErrorMarksFailed(t *testing.T) {
	db, handler, mailer, _ := newTestHandler(t)
	mailer.err = fmt.Errorf("smtp unreachable")
	user := createUser(t, db, "")

	rec := doJSON(t, handler, http.MethodPost, "/notifications/send", map[string]interface{}{
		"user_id": user.ID,
		"type":    "GENERAL",
		"channel": models.ChannelEmail,
		"title":   "Welcome",
		"content": "Welcome to CounselEase",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var notification models.Notification
	if err := db.Where("user_id = ?", user.ID).First(&notification).Error; err != nil {
		t.Fatalf("loading notification: %v", err)
	}
	if notification.Status != models.NotificationFailed {
		t.Fatalf("expected FAILED, got %s", notification.Status)
	}
}

func TestSendNotification_InvalidChannel(t *testing.T) {
	_, handler, _, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/notifications/send", map[string]interface{}{
		"user_id": 1,
		"channel": "PIGEON",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateAppointmentReminder(t *testing.T) {
	db, handler, mailer, _ := newTestHandler(t)
	user := createUser(t, db, "")

	rec := doJSON(t, handler, http.MethodPost, "/notifications/reminder/appointment", map[string]interface{}{
		"appointment_id":   3,
		"user_id":          user.ID,
		"appointment_time": "2026-09-02T10:00:00Z",
		"expert_name":      "Dr. Aylin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	// The reminder is only recorded; delivery happens later.
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no immediate delivery, got %v", mailer.sent)
	}

	var reminder models.Notification
	if err := db.Where("user_id = ?", user.ID).First(&reminder).Error; err != nil {
		t.Fatalf("loading reminder: %v", err)
	}
	if reminder.Type != "APPOINTMENT_REMINDER" || reminder.Status != models.NotificationPending {
		t.Fatalf("unexpected reminder: %+v", reminder)
	}
	if !strings.Contains(reminder.Content, "Dr. Aylin") {
		t.Fatalf("expected expert name in content, got %q", reminder.Content)
	}
}

func TestAppointmentStatusChanged(t *testing.T) {
	db, handler, mailer, _ := newTestHandler(t)
	user := createUser(t, db, "")

	handler.AppointmentStatusChanged(user.ID, 12, models.StatusConfirmed)

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one status email, got %v", mailer.sent)
	}
	var notification models.Notification
	if err := db.Where("user_id = ?", user.ID).First(&notification).Error; err != nil {
		t.Fatalf("loading notification: %v", err)
	}
	if notification.Type != "APPOINTMENT_STATUS" || notification.Status != models.NotificationSent {
		t.Fatalf("unexpected notification: %+v", notification)
	}
	if !strings.Contains(notification.Content, models.StatusConfirmed) {
		t.Fatalf("expected status in content, got %q", notification.Content)
	}
}

func TestGetNotificationHistory(t *testing.T) {
	db, handler, _, _ := newTestHandler(t)
	user := createUser(t, db, "")

	for i := 0; i < 3; i++ {
		notification := models.Notification{
			UserID:  user.ID,
			Type:    "GENERAL",
			Channel: models.ChannelEmail,
			Title:   fmt.Sprintf("title %d", i),
			Content: "content",
			Status:  models.NotificationSent,
		}
		notification.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := db.Create(&notification).Error; err != nil {
			t.Fatalf("creating notification: %v", err)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/notifications/history/%d", user.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var notifications []models.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &notifications); err != nil {
		t.Fatalf("decoding notifications: %v", err)
	}
	if len(notifications) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifications))
	}
	for i := 1; i < len(notifications); i++ {
		if notifications[i].CreatedAt.After(notifications[i-1].CreatedAt) {
			t.Fatal("expected history ordered newest first")
		}
	}
}
