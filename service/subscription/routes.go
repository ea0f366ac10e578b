package subscription

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/aayseekaya/CounselEase/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type SubscriptionHandler struct {
	db *gorm.DB
}

func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{db: db}
}

func (h *SubscriptionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/plans", h.CreatePlan).Methods("POST")
	router.HandleFunc("/plans", h.GetPlans).Methods("GET")

	subscriptionRouter := router.PathPrefix("/subscriptions").Subrouter()
	subscriptionRouter.HandleFunc("/subscribe", utils.AuthMiddleware(h.Subscribe)).Methods("POST")
	subscriptionRouter.HandleFunc("/user/{userId:[0-9]+}", utils.AuthMiddleware(h.GetUserSubscriptions)).Methods("GET")
	subscriptionRouter.HandleFunc("/{id:[0-9]+}/cancel", utils.AuthMiddleware(h.CancelSubscription)).Methods("POST")
}

func (h *SubscriptionHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var planRequest struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Price       float64  `json:"price"`
		Duration    int      `json:"duration"`
		Features    []string `json:"features"`
	}
	if err := json.NewDecoder(r.Body).Decode(&planRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if planRequest.Name == "" || planRequest.Duration < 1 {
		http.Error(w, "Plan name and a duration of at least one month are required", http.StatusBadRequest)
		return
	}

	plan := models.SubscriptionPlan{
		Name:        planRequest.Name,
		Description: planRequest.Description,
		Price:       planRequest.Price,
		Duration:    planRequest.Duration,
		Features:    planRequest.Features,
	}
	if err := h.db.Create(&plan).Error; err != nil {
		http.Error(w, "Error creating plan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Subscription plan created",
		"plan":    plan,
	})
}

func (h *SubscriptionHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	var plans []models.SubscriptionPlan
	if err := h.db.Find(&plans).Error; err != nil {
		http.Error(w, "Error retrieving plans", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plans)
}

// Subscribe starts a subscription for the user. A user may hold at most one
// ACTIVE subscription at a time.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var subscribeRequest struct {
		UserID uint `json:"user_id"`
		PlanID uint `json:"plan_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&subscribeRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var active models.Subscription
	err := h.db.Where("user_id = ? AND status = ?", subscribeRequest.UserID, models.SubscriptionActive).
		First(&active).Error
	if err == nil {
		http.Error(w, "User already has an active subscription", http.StatusBadRequest)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	var plan models.SubscriptionPlan
	if err := h.db.First(&plan, subscribeRequest.PlanID).Error; err != nil {
		http.Error(w, "Subscription plan not found", http.StatusNotFound)
		return
	}

	startDate := time.Now()
	subscription := models.Subscription{
		UserID:    subscribeRequest.UserID,
		PlanID:    plan.ID,
		StartDate: startDate,
		EndDate:   startDate.AddDate(0, plan.Duration, 0),
		Status:    models.SubscriptionActive,
	}
	if err := h.db.Create(&subscription).Error; err != nil {
		http.Error(w, "Error creating subscription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":      "Subscription created successfully",
		"subscription": subscription,
	})
}

func (h *SubscriptionHandler) GetUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var subscriptions []models.Subscription
	if err := h.db.Where("user_id = ?", userID).Preload("Plan").
		Find(&subscriptions).Error; err != nil {
		http.Error(w, "Error retrieving subscriptions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(subscriptions)
}

// CancelSubscription cancels an ACTIVE subscription. Cancelled or expired
// subscriptions stay as they are.
func (h *SubscriptionHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	subscriptionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid subscription ID", http.StatusBadRequest)
		return
	}

	var subscription models.Subscription
	if err := h.db.First(&subscription, subscriptionID).Error; err != nil {
		http.Error(w, "Subscription not found", http.StatusNotFound)
		return
	}

	if subscription.Status != models.SubscriptionActive {
		http.Error(w, "Subscription is already cancelled or expired", http.StatusBadRequest)
		return
	}

	subscription.Status = models.SubscriptionCancelled
	if err := h.db.Save(&subscription).Error; err != nil {
		http.Error(w, "Error cancelling subscription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":      "Subscription cancelled",
		"subscription": subscription,
	})
}
