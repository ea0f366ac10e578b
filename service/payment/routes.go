package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/aayseekaya/CounselEase/cmd/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
)

const invoiceTaxRate = 18.0

type PaymentHandler struct {
	db *gorm.DB
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	return &PaymentHandler{db: db}
}

func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	paymentRouter := router.PathPrefix("/payments").Subrouter()

	paymentRouter.HandleFunc("/create", utils.AuthMiddleware(h.CreatePayment)).Methods("POST")
	paymentRouter.HandleFunc("/webhook", h.HandleStripeWebhook).Methods("POST")
	paymentRouter.HandleFunc("/history/{userId:[0-9]+}", utils.AuthMiddleware(h.GetPaymentHistory)).Methods("GET")
	paymentRouter.HandleFunc("/invoices/{userId:[0-9]+}", utils.AuthMiddleware(h.GetInvoices)).Methods("GET")
}

// CreatePayment opens a Stripe payment intent and records a pending payment
// row carrying the intent ID. The client completes the charge with the
// returned client secret; the webhook flips the row to COMPLETED.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var paymentRequest struct {
		UserID         uint    `json:"user_id"`
		SubscriptionID uint    `json:"subscription_id"`
		Amount         float64 `json:"amount"`
		Currency       string  `json:"currency"`
		PaymentMethod  string  `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&paymentRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if paymentRequest.Amount <= 0 || paymentRequest.Currency == "" {
		http.Error(w, "Amount and currency are required", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.First(&user, paymentRequest.UserID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(paymentRequest.Amount * 100))),
		Currency: stripe.String(strings.ToLower(paymentRequest.Currency)),
	}
	params.IdempotencyKey = stripe.String(uuid.NewString())
	params.AddMetadata("user_id", fmt.Sprint(paymentRequest.UserID))
	params.AddMetadata("subscription_id", fmt.Sprint(paymentRequest.SubscriptionID))

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Printf("Stripe payment intent error: %v", err)
		http.Error(w, "Error initializing payment", http.StatusInternalServerError)
		return
	}

	payment := models.Payment{
		UserID:          paymentRequest.UserID,
		SubscriptionID:  paymentRequest.SubscriptionID,
		Amount:          paymentRequest.Amount,
		Currency:        paymentRequest.Currency,
		Status:          models.PaymentPending,
		PaymentMethod:   paymentRequest.PaymentMethod,
		StripePaymentID: intent.ID,
	}
	if err := h.db.Create(&payment).Error; err != nil {
		http.Error(w, "Error creating payment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"client_secret": intent.ClientSecret,
		"payment_id":    payment.ID,
	})
}

// HandleStripeWebhook verifies the signature, then settles the matching
// payment and issues its invoice when the charge succeeds. Events we do not
// care about are acked with 200 so Stripe stops retrying them.
func (h *PaymentHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"),
		os.Getenv("STRIPE_WEBHOOK_SECRET"))
	if err != nil {
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	if event.Type != "payment_intent.succeeded" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		http.Error(w, "Error parsing webhook payload", http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var payment models.Payment
	if err := tx.Where("stripe_payment_id = ?", intent.ID).First(&payment).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Not ours; ack so Stripe does not keep retrying.
			log.Printf("Webhook for unknown payment intent %s", intent.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	payment.Status = models.PaymentCompleted
	if err := tx.Save(&payment).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating payment", http.StatusInternalServerError)
		return
	}

	taxAmount := payment.Amount * (invoiceTaxRate / 100)
	invoice := models.Invoice{
		PaymentID:   payment.ID,
		InvoiceNo:   fmt.Sprintf("INV-%d", time.Now().UnixMilli()),
		TaxRate:     invoiceTaxRate,
		TaxAmount:   taxAmount,
		TotalAmount: payment.Amount + taxAmount,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating invoice", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing webhook processing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

// GetPaymentHistory lists the user's payments, newest first.
func (h *PaymentHandler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var payments []models.Payment
	if err := h.db.Where("user_id = ?", userID).Preload("Invoice").
		Order("created_at DESC").Find(&payments).Error; err != nil {
		http.Error(w, "Error retrieving payments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payments)
}

// GetInvoices lists invoices belonging to the user's payments.
func (h *PaymentHandler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var invoices []models.Invoice
	if err := h.db.Joins("JOIN payments ON payments.id = invoices.payment_id").
		Where("payments.user_id = ?", userID).
		Find(&invoices).Error; err != nil {
		http.Error(w, "Error retrieving invoices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoices)
}
