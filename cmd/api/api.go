package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/aayseekaya/CounselEase/service/appointment"
	"github.com/aayseekaya/CounselEase/service/notification"
	"github.com/aayseekaya/CounselEase/service/payment"
	"github.com/aayseekaya/CounselEase/service/subscription"
	"github.com/aayseekaya/CounselEase/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods("GET")

	subrouter := router.PathPrefix("/api/v1").Subrouter()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	appointmentHandler := appointment.NewAppointmentHandler(s.db, notificationHandler)
	appointmentHandler.RegisterRoutes(subrouter)

	subscriptionHandler := subscription.NewSubscriptionHandler(s.db)
	subscriptionHandler.RegisterRoutes(subrouter)

	paymentHandler := payment.NewPaymentHandler(s.db)
	paymentHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
