// Package notify holds app-wide UI state: the bounded notification list,
// the online flag and the sidebar/theme toggles.
package notify

import (
	"context"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/logger"
	"github.com/PhilHem/go-dashboard-shell/backend/state"

	"github.com/google/uuid"
)

// MaxNotifications is how many notifications are kept; older ones are evicted.
const MaxNotifications = 10

const source = "AppStore"

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Draft is a notification before the store assigns its id and timestamp.
type Draft struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    Kind   `json:"type"`
}

// State is the full app store snapshot. Notifications are newest first.
type State struct {
	Notifications []Notification `json:"notifications"`
	Online        bool           `json:"isOnline"`
	SidebarOpen   bool           `json:"sidebarOpen"`
	Theme         Theme          `json:"theme"`
}

// Emitter receives the store's observability events.
type Emitter interface {
	Emit(level logger.Level, source, message string)
}

type Store struct {
	state *state.Store[State]
	log   Emitter
	newID func() string
	now   func() time.Time
}

func NewStore(online bool, log Emitter) *Store {
	if log == nil {
		log = logger.Nop{}
	}
	return &Store{
		state: state.New(State{
			Notifications: []Notification{},
			Online:        online,
			Theme:         ThemeLight,
		}),
		log:   log,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (s *Store) Get() State {
	return s.state.Get()
}

func (s *Store) Subscribe(fn func(State)) func() {
	return s.state.Subscribe(fn)
}

// Add stores a new notification in front of the list and returns it.
func (s *Store) Add(d Draft) Notification {
	n := Notification{
		ID:        s.newID(),
		Title:     d.Title,
		Message:   d.Message,
		Kind:      d.Kind,
		CreatedAt: s.now(),
	}
	s.state.Set(func(st State) State {
		size := min(len(st.Notifications)+1, MaxNotifications)
		list := make([]Notification, 0, size)
		list = append(list, n)
		list = append(list, st.Notifications[:size-1]...)
		st.Notifications = list
		return st
	})
	return n
}

// Remove drops the notification with id. Unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.state.Set(func(st State) State {
		list := make([]Notification, 0, len(st.Notifications))
		for _, n := range st.Notifications {
			if n.ID != id {
				list = append(list, n)
			}
		}
		st.Notifications = list
		return st
	})
}

// MarkRead flags the notification with id as read.
func (s *Store) MarkRead(id string) {
	s.state.Set(func(st State) State {
		list := make([]Notification, len(st.Notifications))
		copy(list, st.Notifications)
		for i := range list {
			if list[i].ID == id {
				list[i].Read = true
			}
		}
		st.Notifications = list
		return st
	})
}

func (s *Store) Clear() {
	s.state.Set(func(st State) State {
		st.Notifications = []Notification{}
		return st
	})
}

func (s *Store) SetOnline(online bool) {
	s.state.Set(func(st State) State {
		st.Online = online
		return st
	})
}

func (s *Store) SetSidebarOpen(open bool) {
	s.state.Set(func(st State) State {
		st.SidebarOpen = open
		return st
	})
}

func (s *Store) ToggleSidebar() {
	s.state.Set(func(st State) State {
		st.SidebarOpen = !st.SidebarOpen
		return st
	})
}

func (s *Store) SetTheme(theme Theme) {
	s.state.Set(func(st State) State {
		st.Theme = theme
		return st
	})
}

// Connectivity handles one online/offline event: it records the flag and
// tells the user about it.
func (s *Store) Connectivity(online bool) {
	if online {
		s.log.Emit(logger.LevelInfo, source, "Connection restored")
		s.SetOnline(true)
		s.Add(Draft{Title: "Connection Restored", Message: "You are back online", Kind: KindSuccess})
		return
	}
	s.log.Emit(logger.LevelWarning, source, "Connection lost")
	s.SetOnline(false)
	s.Add(Draft{Title: "Connection Lost", Message: "You are currently offline", Kind: KindWarning})
}

// Watch feeds connectivity events into the store until ctx ends or events closes.
func (s *Store) Watch(ctx context.Context, events <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-events:
			if !ok {
				return
			}
			s.Connectivity(online)
		}
	}
}
