package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PhilHem/go-dashboard-shell/backend/notify"
)

func decodeApp(t *testing.T, rec *httptest.ResponseRecorder) notify.State {
	t.Helper()
	var st notify.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return st
}

func TestAddNotification(t *testing.T) {
	setupHandlers(t)

	rec := httptest.NewRecorder()
	AddNotification(rec, jsonRequest("POST", "/api/notifications", `{"title":"Saved","message":"All good","type":"success"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var n notify.Notification
	if err := json.NewDecoder(rec.Body).Decode(&n); err != nil {
		t.Fatal(err)
	}
	if n.ID == "" || n.Read || n.Kind != notify.KindSuccess || n.Title != "Saved" {
		t.Errorf("unexpected notification: %+v", n)
	}
	if got := Notifications.Get().Notifications; len(got) != 1 || got[0].ID != n.ID {
		t.Errorf("store not updated: %+v", got)
	}
}

func TestAddNotification_Validation(t *testing.T) {
	setupHandlers(t)

	for _, body := range []string{`{"title":""}`, `{"title":"x","type":"fatal"}`} {
		rec := httptest.NewRecorder()
		AddNotification(rec, jsonRequest("POST", "/api/notifications", body))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", body, rec.Code)
		}
	}
	if len(Notifications.Get().Notifications) != 0 {
		t.Error("invalid drafts must not be stored")
	}
}

func TestNotifications_ReadRemoveClear(t *testing.T) {
	setupHandlers(t)
	a := Notifications.Add(notify.Draft{Title: "a", Kind: notify.KindInfo})
	b := Notifications.Add(notify.Draft{Title: "b", Kind: notify.KindInfo})

	req := httptest.NewRequest("POST", "/api/notifications/"+a.ID+"/read", nil)
	req.SetPathValue("id", a.ID)
	rec := httptest.NewRecorder()
	MarkNotificationRead(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest("DELETE", "/api/notifications/"+b.ID, nil)
	req.SetPathValue("id", b.ID)
	DeleteNotification(httptest.NewRecorder(), req)

	list := Notifications.Get().Notifications
	if len(list) != 1 || list[0].ID != a.ID || !list[0].Read {
		t.Fatalf("unexpected list: %+v", list)
	}

	ClearNotifications(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/api/notifications", nil))
	if len(Notifications.Get().Notifications) != 0 {
		t.Error("clear should empty the list")
	}
}

func TestGetNotifications_HTMXFragment(t *testing.T) {
	setupHandlers(t)
	Notifications.Add(notify.Draft{Title: "<b>hi</b>", Kind: notify.KindWarning})

	req := httptest.NewRequest("GET", "/api/notifications", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	GetNotifications(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "<b>hi</b>") || !strings.Contains(body, "&lt;b&gt;hi&lt;/b&gt;") {
		t.Errorf("fragment should escape titles: %s", body)
	}

	rec = httptest.NewRecorder()
	GetNotifications(rec, httptest.NewRequest("GET", "/api/notifications", nil))
	if st := decodeApp(t, rec); len(st.Notifications) != 1 || !st.Online {
		t.Errorf("unexpected JSON state: %+v", st)
	}
}

func TestSetConnectivity(t *testing.T) {
	setupHandlers(t)

	rec := httptest.NewRecorder()
	SetConnectivity(rec, jsonRequest("PUT", "/api/connectivity", `{"online":false}`))

	st := decodeApp(t, rec)
	if st.Online {
		t.Error("expected offline")
	}
	if len(st.Notifications) != 1 || st.Notifications[0].Title != "Connection Lost" {
		t.Errorf("expected connection lost notice, got %+v", st.Notifications)
	}

	rec = httptest.NewRecorder()
	SetConnectivity(rec, jsonRequest("PUT", "/api/connectivity", `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing flag should be rejected, got %d", rec.Code)
	}
}

func TestUpdateUI(t *testing.T) {
	setupHandlers(t)

	rec := httptest.NewRecorder()
	UpdateUI(rec, jsonRequest("PUT", "/api/ui", `{"toggleSidebar":true,"theme":"dark"}`))
	st := decodeApp(t, rec)
	if !st.SidebarOpen || st.Theme != notify.ThemeDark {
		t.Errorf("unexpected UI state: %+v", st)
	}

	rec = httptest.NewRecorder()
	UpdateUI(rec, jsonRequest("PUT", "/api/ui", `{"sidebarOpen":false,"theme":"neon"}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown theme should be rejected, got %d", rec.Code)
	}
	if !Notifications.Get().SidebarOpen {
		t.Error("rejected request must not change state")
	}
}
