package handlers

import (
	_ "embed"
	"net/http"
)

const banner = "✅ GymSync Backend is running!"

//go:embed static/success.html
var successPage []byte

// HandleHealth is a simple health check handler that returns "ok".
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// HandleRoot returns the banner shown at the server root.
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(banner))
}

// HandleSuccess serves the page the OAuth2 flow redirects to after login.
func HandleSuccess(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(successPage)
}
