package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
	router.HandleFunc("/experts", h.GetExperts).Methods("GET")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		FullName  string `json:"full_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Phone     string `json:"phone"`
		UserType  string `json:"user_type"`
		Expertise string `json:"expertise"`
		Bio       string `json:"bio"`
		Timezone  string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	if registerRequest.FullName == "" || registerRequest.Email == "" || registerRequest.Password == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if registerRequest.UserType != models.UserTypeClient && registerRequest.UserType != models.UserTypeExpert {
		http.Error(w, "user_type must be CLIENT or EXPERT", http.StatusBadRequest)
		return
	}
	if registerRequest.Timezone != "" {
		if _, err := time.LoadLocation(registerRequest.Timezone); err != nil {
			http.Error(w, "Invalid timezone", http.StatusBadRequest)
			return
		}
	}

	var existingUser models.User
	if result := h.db.Where("email = ?", registerRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		http.Error(w, "Email is already in use", http.StatusConflict)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	tx := h.db.Begin()

	user := models.User{
		FullName:     registerRequest.FullName,
		Email:        registerRequest.Email,
		PasswordHash: string(passwordHash),
		UserType:     registerRequest.UserType,
		Phone:        registerRequest.Phone,
	}
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error registering user", http.StatusInternalServerError)
		return
	}

	var expertID uint
	if registerRequest.UserType == models.UserTypeExpert {
		expert := models.Expert{
			UserID:    user.ID,
			Expertise: registerRequest.Expertise,
			Bio:       registerRequest.Bio,
		}
		if registerRequest.Timezone != "" {
			expert.Timezone = registerRequest.Timezone
		}
		if err := tx.Create(&expert).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error creating expert profile", http.StatusInternalServerError)
			return
		}
		expertID = expert.ID
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error committing transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	response := map[string]interface{}{
		"message": "User registered successfully",
		"user_id": user.ID,
	}
	if expertID != 0 {
		response["expert_id"] = expertID
	}
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	result := h.db.Where("email = ?", loginRequest.Email).First(&user)
	if result.Error != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := generateJWT(user.ID, 24*time.Hour)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"message":      "Login successful",
		"access_token": accessToken,
		"user_id":      user.ID,
		"user_type":    user.UserType,
	}

	if user.UserType == models.UserTypeExpert {
		var expert models.Expert
		result := h.db.Where("user_id = ?", user.ID).First(&expert)
		if result.Error == nil {
			response["expert_id"] = expert.ID
		} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, "Error fetching expert profile", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetUser retrieves a specific user by ID
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.Preload("Expert").First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// GetExperts lists all expert profiles with their users preloaded.
func (h *Handler) GetExperts(w http.ResponseWriter, r *http.Request) {
	var experts []models.Expert
	query := h.db.Model(&models.Expert{}).Preload("User")

	if expertise := r.URL.Query().Get("expertise"); expertise != "" {
		query = query.Where("expertise = ?", expertise)
	}

	if err := query.Find(&experts).Error; err != nil {
		http.Error(w, "Error retrieving experts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(experts)
}

func generateJWT(userID uint, ttl time.Duration) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}
