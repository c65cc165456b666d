package api

import (
	"encoding/json"
	"net/http"

	"github.com/borgframework/borg/internal/notify"
)

// EmailSettingsResponse mirrors SMTP settings with the password masked.
type EmailSettingsResponse struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	From       string `json:"from"`
	Configured bool   `json:"configured"`
}

// getEmailSettings returns the current SMTP configuration. The password
// is never echoed back.
// GET /api/email/settings
func (s *Server) getEmailSettings(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, "email not available")
		return
	}
	settings := s.mailer.Settings()
	writeJSON(w, http.StatusOK, EmailSettingsResponse{
		Host:       settings.Host,
		Port:       settings.Port,
		Username:   settings.Username,
		From:       settings.From,
		Configured: settings.Host != "",
	})
}

// updateEmailSettings replaces the SMTP configuration at runtime.
// PUT /api/email/settings
func (s *Server) updateEmailSettings(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, "email not available")
		return
	}

	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
		From     string `json:"from"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Host == "" {
		writeError(w, http.StatusBadRequest, "host is required")
		return
	}

	s.mailer.Configure(notify.SMTPSettings{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		From:     req.From,
	})

	s.getEmailSettings(w, r)
}

// sendTestEmail delivers a test message to verify the SMTP settings.
// POST /api/email/test
func (s *Server) sendTestEmail(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, "email not available")
		return
	}

	var req struct {
		To string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}

	err := s.mailer.Send(r.Context(), req.To,
		"Borg test email",
		"This is a test email from your Borg workflow server. If you are reading this, SMTP is configured correctly.")
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
