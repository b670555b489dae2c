package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"net/http"
)

const (
	csrfCookie = "_csrf"
	csrfHeader = "X-CSRF-Token"
	nonceSize  = 32
)

// CSRFProtection implements signed double-submit tokens. The token lives in
// a readable cookie and must be echoed back in the X-CSRF-Token header (htmx
// and fetch callers) or the _csrf form field.
type CSRFProtection struct {
	secret []byte
	secure bool
}

// NewCSRFProtection signs tokens with secret. secure marks the cookie
// Secure and should follow whether TLS is on.
func NewCSRFProtection(secret string, secure bool) *CSRFProtection {
	return &CSRFProtection{secret: []byte(secret), secure: secure}
}

func (c *CSRFProtection) sign(nonce []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(nonce)
	return mac.Sum(nil)
}

func (c *CSRFProtection) generateToken() (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(append(nonce, c.sign(nonce)...)), nil
}

func (c *CSRFProtection) validToken(token string) bool {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(raw) != nonceSize+sha256.Size {
		return false
	}
	return hmac.Equal(raw[nonceSize:], c.sign(raw[:nonceSize]))
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func (c *CSRFProtection) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			if _, err := r.Cookie(csrfCookie); err != nil {
				token, err := c.generateToken()
				if err != nil {
					slog.Error("csrf token generation failed", "source", "csrf", "error", err.Error())
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookie,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // read by the page script
					SameSite: http.SameSiteStrictMode,
					Secure:   c.secure,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookie)
		if err != nil {
			slog.Warn("csrf token missing", "source", "csrf", "path", r.URL.Path)
			http.Error(w, "CSRF token missing", http.StatusForbidden)
			return
		}

		sent := r.Header.Get(csrfHeader)
		if sent == "" {
			sent = r.PostFormValue(csrfCookie)
		}
		if sent != cookie.Value || !c.validToken(sent) {
			slog.Warn("csrf token invalid", "source", "csrf", "path", r.URL.Path)
			http.Error(w, "CSRF token invalid", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
