package appointment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ReplaceExpertSchedule swaps the expert's whole weekly schedule for the one
// in the request. Callers send the complete desired set of windows, not a
// delta; the delete and inserts run in one transaction so no partial schedule
// is ever visible.
func (h *AppointmentHandler) ReplaceExpertSchedule(w http.ResponseWriter, r *http.Request) {
	var scheduleRequest struct {
		ExpertID  uint `json:"expert_id"`
		Schedules []struct {
			DayOfWeek   int    `json:"day_of_week"`
			StartTime   string `json:"start_time"`
			EndTime     string `json:"end_time"`
			IsAvailable bool   `json:"is_available"`
		} `json:"schedules"`
	}

	if err := json.NewDecoder(r.Body).Decode(&scheduleRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	for i, schedule := range scheduleRequest.Schedules {
		if schedule.DayOfWeek < 0 || schedule.DayOfWeek > 6 {
			http.Error(w, fmt.Sprintf("Schedule %d: day_of_week must be 0 (Sunday) through 6 (Saturday)", i), http.StatusBadRequest)
			return
		}
		if !timeOfDayPattern.MatchString(schedule.StartTime) || !timeOfDayPattern.MatchString(schedule.EndTime) {
			http.Error(w, fmt.Sprintf("Schedule %d: times must be zero-padded HH:MM", i), http.StatusBadRequest)
			return
		}
		if schedule.StartTime >= schedule.EndTime {
			http.Error(w, fmt.Sprintf("Schedule %d: end_time must be after start_time", i), http.StatusBadRequest)
			return
		}
	}

	var expert models.Expert
	if err := h.db.First(&expert, scheduleRequest.ExpertID).Error; err != nil {
		http.Error(w, "Expert not found", http.StatusNotFound)
		return
	}

	var windows []models.ExpertSchedule
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expert_id = ?", scheduleRequest.ExpertID).
			Unscoped().Delete(&models.ExpertSchedule{}).Error; err != nil {
			return err
		}
		for _, schedule := range scheduleRequest.Schedules {
			window := models.ExpertSchedule{
				ExpertID:    scheduleRequest.ExpertID,
				DayOfWeek:   schedule.DayOfWeek,
				StartTime:   schedule.StartTime,
				EndTime:     schedule.EndTime,
				IsAvailable: schedule.IsAvailable,
			}
			if err := tx.Create(&window).Error; err != nil {
				return err
			}
			windows = append(windows, window)
		}
		return nil
	})
	if err != nil {
		http.Error(w, "Error updating schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Schedule updated successfully",
		"schedules": windows,
	})
}

// GetExpertSchedule lists the expert's weekly windows.
func (h *AppointmentHandler) GetExpertSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid expert ID", http.StatusBadRequest)
		return
	}

	var windows []models.ExpertSchedule
	if err := h.db.Where("expert_id = ?", expertID).
		Order("day_of_week ASC, start_time ASC").Find(&windows).Error; err != nil {
		http.Error(w, "Error retrieving schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(windows)
}
