package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/database"
	"github.com/PhilHem/go-dashboard-shell/backend/models"
)

type LogsResponse struct {
	Logs    []models.LogEntry `json:"logs"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

func GetLogs(w http.ResponseWriter, r *http.Request) {
	var logs []models.LogEntry
	q := database.DB.Model(&models.LogEntry{})

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	// Filters
	if level := r.URL.Query().Get("level"); level != "" {
		q = q.Where("level = ?", level)
	}
	if source := r.URL.Query().Get("source"); source != "" {
		q = q.Where("source = ?", source)
	}
	if user := r.URL.Query().Get("user_id"); user != "" {
		q = q.Where("user_id = ?", user)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		q = q.Where("message LIKE ? OR data LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		http.Error(w, "Failed to count logs", http.StatusInternalServerError)
		return
	}

	offset := (page - 1) * perPage
	if err := q.Order("created_at DESC").Offset(offset).Limit(perPage).Find(&logs).Error; err != nil {
		http.Error(w, "Failed to load logs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, LogsResponse{
		Logs:    logs,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

func GetLogSources(w http.ResponseWriter, r *http.Request) {
	sources := []string{}
	database.DB.Model(&models.LogEntry{}).Distinct("source").Where("source != ''").Pluck("source", &sources)
	writeJSON(w, http.StatusOK, sources)
}

type TimelinePoint struct {
	Time  string `json:"time"`
	Count int    `json:"count"`
}

// timelineFormats maps accepted resolutions to strftime buckets. Anything
// else falls back to hourly buckets.
var timelineFormats = map[string]string{
	"1m": "%Y-%m-%d %H:%M",
	"1h": "%Y-%m-%d %H:00",
	"1d": "%Y-%m-%d",
}

var timelineRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

func GetLogTimeline(w http.ResponseWriter, r *http.Request) {
	span, ok := timelineRanges[r.URL.Query().Get("range")]
	if !ok {
		span = 24 * time.Hour
	}

	resolution := r.URL.Query().Get("resolution")
	format, ok := timelineFormats[resolution]
	if !ok {
		format = timelineFormats["1h"]
		if span <= time.Hour {
			format = timelineFormats["1m"]
		}
	}

	results := []TimelinePoint{}
	err := database.DB.Model(&models.LogEntry{}).
		Select("strftime(?, created_at) as time, count(*) as count", format).
		Where("created_at >= ?", time.Now().Add(-span)).
		Group("time").
		Order("time ASC").
		Limit(500).
		Scan(&results).Error
	if err != nil {
		http.Error(w, "Failed to build timeline", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

type BulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

func DeleteLogs(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if len(req.IDs) == 0 {
		http.Error(w, "No IDs provided", http.StatusBadRequest)
		return
	}

	result := database.DB.Delete(&models.LogEntry{}, req.IDs)

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": result.RowsAffected})
}
