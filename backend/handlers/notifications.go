package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/PhilHem/go-dashboard-shell/backend/notify"
	"github.com/PhilHem/go-dashboard-shell/frontend/templates"
)

func GetNotifications(w http.ResponseWriter, r *http.Request) {
	st := Notifications.Get()
	if isHTMX(r) {
		templates.NotificationList(st.Notifications).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func AddNotification(w http.ResponseWriter, r *http.Request) {
	var d notify.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	d.Title = strings.TrimSpace(d.Title)
	if d.Kind == "" {
		d.Kind = notify.KindInfo
	}
	if d.Title == "" || !d.Kind.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "title and a valid type are required")
		return
	}

	writeJSON(w, http.StatusCreated, Notifications.Add(d))
}

func DeleteNotification(w http.ResponseWriter, r *http.Request) {
	Notifications.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	Notifications.MarkRead(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func ClearNotifications(w http.ResponseWriter, r *http.Request) {
	Notifications.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

// SetConnectivity lets the view layer report browser online/offline events.
func SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Online == nil {
		writeError(w, http.StatusBadRequest, "online flag required")
		return
	}
	Notifications.Connectivity(*req.Online)
	writeJSON(w, http.StatusOK, Notifications.Get())
}

type uiRequest struct {
	SidebarOpen   *bool         `json:"sidebarOpen"`
	ToggleSidebar bool          `json:"toggleSidebar"`
	Theme         *notify.Theme `json:"theme"`
}

func UpdateUI(w http.ResponseWriter, r *http.Request) {
	var req uiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Theme != nil && *req.Theme != notify.ThemeLight && *req.Theme != notify.ThemeDark {
		writeError(w, http.StatusUnprocessableEntity, "theme must be light or dark")
		return
	}

	if req.SidebarOpen != nil {
		Notifications.SetSidebarOpen(*req.SidebarOpen)
	}
	if req.ToggleSidebar {
		Notifications.ToggleSidebar()
	}
	if req.Theme != nil {
		Notifications.SetTheme(*req.Theme)
	}
	writeJSON(w, http.StatusOK, Notifications.Get())
}
