package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/keybear/keybear/password"
	"github.com/sirupsen/logrus"
)

// ListPasswords handles GET /v1/passwords, returning the public
// projection of every stored record with the secret omitted.
func (a *App) ListPasswords(w http.ResponseWriter, r *http.Request) {
	list, err := a.Passwords.List()
	if err != nil {
		plainError(w, http.StatusInternalServerError, "failed to list passwords")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetPassword handles GET /v1/passwords/{id}, returning just the secret
// value.
func (a *App) GetPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := a.Passwords.Get(id)
	if err != nil {
		if errors.Is(err, password.ErrNotFound) {
			plainError(w, http.StatusNotFound, "password not found")
			return
		}
		plainError(w, http.StatusInternalServerError, "failed to load password")
		return
	}
	writeJSON(w, http.StatusOK, password.Secret{Password: p.Secret})
}

type passwordRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Website  string `json:"website,omitempty"`
}

// CreatePassword handles POST /v1/passwords.
func (a *App) CreatePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		plainError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := a.Passwords.Create(req.Name, req.Password, req.Email, req.Website)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "CreatePassword", "package": "server"}).
			WithError(err).Error("failed to create password")
		plainError(w, http.StatusInternalServerError, "failed to create password")
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}

// UpdatePassword handles PUT /v1/passwords/{id}.
func (a *App) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		plainError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := a.Passwords.Update(id, req.Name, req.Password, req.Email, req.Website)
	if err != nil {
		if errors.Is(err, password.ErrNotFound) {
			plainError(w, http.StatusNotFound, "password not found")
			return
		}
		plainError(w, http.StatusInternalServerError, "failed to update password")
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}

// DeletePassword handles DELETE /v1/passwords/{id}.
func (a *App) DeletePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := a.Passwords.Delete(id)
	if err != nil {
		if errors.Is(err, password.ErrNotFound) {
			plainError(w, http.StatusNotFound, "password not found")
			return
		}
		plainError(w, http.StatusInternalServerError, "failed to delete password")
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}
