package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/keybear/keybear/device"
	"github.com/sirupsen/logrus"
)

type registerRequest struct {
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
}

type registerResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ServerPublicKey  string `json:"server_public_key"`
	VerificationCode string `json:"verification_code"`
}

// Register handles POST /v1/register. It is unauthenticated: any peer
// reaching the loopback listener may request enrollment, and the
// enrollment state machine itself decides whether the new device is
// admitted directly or placed behind verification.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	logger := logrus.WithFields(logrus.Fields{"function": "Register", "package": "server"})

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		plainError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rawKey, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil || len(rawKey) != 32 {
		plainError(w, http.StatusBadRequest, "public_key must be 32 bytes, base64-encoded")
		return
	}
	var publicKey [32]byte
	copy(publicKey[:], rawKey)

	d, code, err := a.Registry.Register(req.Name, publicKey)
	if err != nil {
		logger.WithError(err).Error("register failed")
		plainError(w, http.StatusInternalServerError, "failed to register device")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		ID:               d.ID,
		Name:             d.Name,
		ServerPublicKey:  base64.StdEncoding.EncodeToString(a.ServerPublic[:]),
		VerificationCode: code,
	})
}

// Nonce handles POST /v1/nonce. Its body is unencrypted in both
// directions: the client has no nonce yet to encrypt a request with, so
// the handler identifies the caller directly from the client-id header
// rather than through the encrypted request pipeline.
func (a *App) Nonce(w http.ResponseWriter, r *http.Request) {
	clientID := r.Header.Get(clientIDHeader)
	if clientID == "" {
		plainError(w, http.StatusUnauthorized, "missing "+clientIDHeader+" header")
		return
	}

	if _, err := a.Registry.FindEnrolled(clientID); err != nil {
		plainError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	nonce, err := a.Registry.IssueNonce(clientID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "Nonce", "package": "server", "device_id": clientID}).
			WithError(err).Error("failed to issue nonce")
		plainError(w, http.StatusInternalServerError, "failed to issue nonce")
		return
	}

	writeJSON(w, http.StatusOK, nonce)
}

// ListDevices handles GET /v1/devices.
func (a *App) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := a.Registry.ListEnrolled()
	if err != nil {
		plainError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}
	public := make([]device.PublicDevice, 0, len(devices))
	for _, d := range devices {
		public = append(public, d.Public())
	}
	writeJSON(w, http.StatusOK, public)
}

// ListVerificationDevices handles GET /v1/verification_devices.
func (a *App) ListVerificationDevices(w http.ResponseWriter, r *http.Request) {
	pending, err := a.Registry.ListPending()
	if err != nil {
		plainError(w, http.StatusInternalServerError, "failed to list pending devices")
		return
	}
	public := make([]device.PublicPending, 0, len(pending))
	for _, p := range pending {
		public = append(public, p.Public())
	}
	writeJSON(w, http.StatusOK, public)
}

type verifyRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	VerificationCode string `json:"verification_code"`
}

// Verify handles POST /v1/verify. The caller must already be enrolled;
// self-verification and a wrong code are both rejected with 400.
func (a *App) Verify(w http.ResponseWriter, r *http.Request) {
	verifier, ok := deviceFromContext(r.Context())
	if !ok {
		plainError(w, http.StatusUnauthorized, "no authenticated device")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		plainError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	err := a.Registry.Verify(verifier.ID, req.ID, req.VerificationCode)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, struct{}{})
	case errors.Is(err, device.ErrSelfVerify), errors.Is(err, device.ErrVerificationCodeMismatch):
		plainError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, device.ErrNotFound):
		plainError(w, http.StatusNotFound, "pending device not found")
	default:
		logrus.WithFields(logrus.Fields{"function": "Verify", "package": "server"}).WithError(err).Error("verify failed")
		plainError(w, http.StatusInternalServerError, "failed to verify device")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		plainError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
