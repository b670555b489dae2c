package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/PhilHem/go-dashboard-shell/backend/auth"
	"github.com/PhilHem/go-dashboard-shell/frontend/templates"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether email looks like a deliverable address.
func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidatePassword enforces the registration password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper {
		return errors.New("password must contain an uppercase letter")
	}
	if !digit {
		return errors.New("password must contain a number")
	}
	if !special {
		return errors.New("password must contain a special character")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func LoginPage(w http.ResponseWriter, r *http.Request) {
	templates.Login("", "").Render(r.Context(), w)
}

func RegisterPage(w http.ResponseWriter, r *http.Request) {
	templates.Register("", "").Render(r.Context(), w)
}

func DashboardPage(w http.ResponseWriter, r *http.Request) {
	templates.Dashboard(CurrentAuth(w, r).Get(), Notifications.Get()).Render(r.Context(), w)
}

func GetAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CurrentAuth(w, r).Get())
}

func Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
	} else {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}
	req.Email = strings.TrimSpace(req.Email)

	if !ValidateEmail(req.Email) || req.Password == "" {
		slog.Warn("login rejected: invalid input", "source", "auth", "email", req.Email)
		if isHTMX(r) {
			templates.LoginForm("Enter a valid email and password", req.Email).Render(r.Context(), w)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "enter a valid email and password")
		return
	}

	st := SessionAuth(w, r).Login(r.Context(), req.Email, req.Password)

	if isHTMX(r) {
		if !st.IsAuthenticated() {
			templates.LoginForm("Invalid email or password", req.Email).Render(r.Context(), w)
			return
		}
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}

	status := http.StatusOK
	if !st.IsAuthenticated() {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, st)
}

func Register(w http.ResponseWriter, r *http.Request) {
	var d auth.Draft
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
	} else {
		d.Name = r.FormValue("name")
		d.Email = r.FormValue("email")
		d.Password = r.FormValue("password")
	}
	d.Email = strings.TrimSpace(d.Email)
	d.Name = strings.TrimSpace(d.Name)
	// Self-registration never grants admin.
	d.Role = auth.RoleUser

	var problem string
	switch {
	case d.Name == "":
		problem = "name is required"
	case !ValidateEmail(d.Email):
		problem = "enter a valid email"
	default:
		if err := ValidatePassword(d.Password); err != nil {
			problem = err.Error()
		}
	}
	if problem != "" {
		slog.Warn("registration rejected: "+problem, "source", "auth", "email", d.Email)
		if isHTMX(r) {
			templates.RegisterForm(problem, d.Email).Render(r.Context(), w)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}

	st := SessionAuth(w, r).Register(r.Context(), d)

	if isHTMX(r) {
		if !st.IsAuthenticated() {
			templates.RegisterForm(st.Error, d.Email).Render(r.Context(), w)
			return
		}
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}

	status := http.StatusCreated
	if !st.IsAuthenticated() {
		status = http.StatusConflict
	}
	writeJSON(w, status, st)
}

func Logout(w http.ResponseWriter, r *http.Request) {
	st := CurrentAuth(w, r).Logout(r.Context())

	if isJSON(r) || r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, st)
		return
	}
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p auth.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if p.Email != nil && !ValidateEmail(strings.TrimSpace(*p.Email)) {
		writeError(w, http.StatusUnprocessableEntity, "enter a valid email")
		return
	}

	store := CurrentAuth(w, r)
	if p.Role != nil {
		// Only admins may change roles.
		cur := store.Get()
		if cur.User == nil || cur.User.Role != auth.RoleAdmin || !p.Role.Valid() {
			writeError(w, http.StatusForbidden, "role change not allowed")
			return
		}
	}

	st := store.UpdateProfile(r.Context(), p)
	status := http.StatusOK
	if st.Error != "" {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, st)
}

func ClearAuthError(w http.ResponseWriter, r *http.Request) {
	store := CurrentAuth(w, r)
	store.ClearError()
	writeJSON(w, http.StatusOK, store.Get())
}
