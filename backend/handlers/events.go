package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/PhilHem/go-dashboard-shell/backend/auth"
	"github.com/PhilHem/go-dashboard-shell/backend/notify"
)

// mark records a pending change without blocking; one pending mark is as
// good as many.
func mark(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Events streams store changes as server-sent events: "auth" for this
// browser's session and "notifications" for the app store. Changes are
// coalesced per stream and each event carries the state current when it is
// written, so a slow client skips intermediate states but always ends on
// the latest one.
func Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	store := CurrentAuth(w, r)
	authChanged := make(chan struct{}, 1)
	appChanged := make(chan struct{}, 1)

	unsubAuth := store.Subscribe(func(auth.State) { mark(authChanged) })
	defer unsubAuth()
	unsubApp := Notifications.Subscribe(func(notify.State) { mark(appChanged) })
	defer unsubApp()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(name string, data any) bool {
		b, err := json.Marshal(data)
		if err != nil {
			slog.Error("event encode failed", "source", "events", "event", name, "error", err.Error())
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send("auth", store.Get()) || !send("notifications", Notifications.Get()) {
		return
	}

	for {
		var ok bool
		select {
		case <-r.Context().Done():
			return
		case <-authChanged:
			ok = send("auth", store.Get())
		case <-appChanged:
			ok = send("notifications", Notifications.Get())
		}
		if !ok {
			return
		}
	}
}
