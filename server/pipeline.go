package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/keybear/keybear/crypto"
	"github.com/keybear/keybear/device"
	"github.com/sirupsen/logrus"
)

// EncryptedPipeline authenticates the calling device via the client-id
// header, consumes that device's single-use nonce, decrypts the request
// body, and hands the plaintext to next. Once next returns, the pipeline
// encrypts a 2xx response with the same shared secret and nonce, or
// passes a non-2xx response through unencrypted.
func (a *App) EncryptedPipeline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logrus.WithFields(logrus.Fields{
			"function": "EncryptedPipeline",
			"package":  "server",
			"path":     r.URL.Path,
		})

		clientID := r.Header.Get(clientIDHeader)
		if clientID == "" {
			logger.Warn("request missing client id header")
			plainError(w, http.StatusUnauthorized, "missing "+clientIDHeader+" header")
			return
		}

		d, err := a.Registry.FindEnrolled(clientID)
		if err != nil {
			logger.WithField("device_id", clientID).Warn("request from unknown device")
			plainError(w, http.StatusUnauthorized, "unknown device")
			return
		}
		if outcome, ok := requestOutcomeFromContext(r.Context()); ok {
			outcome.deviceID = clientID
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.WithField("device_id", clientID).WithError(err).Error("failed to read request body")
			plainError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		nonceBytes, err := a.Registry.ConsumeNonce(clientID)
		if err != nil {
			if errors.Is(err, device.ErrNoNonce) {
				logger.WithField("device_id", clientID).Warn("request with no outstanding nonce")
				plainError(w, http.StatusUnauthorized, "no nonce issued for device")
				return
			}
			logger.WithField("device_id", clientID).WithError(err).Error("failed to consume nonce")
			plainError(w, http.StatusInternalServerError, "failed to consume nonce")
			return
		}
		nonce := crypto.Nonce(nonceBytes)

		shared, err := crypto.DeriveSharedSecret(d.PublicKey, a.ServerSecret)
		if err != nil {
			logger.WithField("device_id", clientID).WithError(err).Error("failed to derive shared secret")
			plainError(w, http.StatusInternalServerError, "failed to derive shared secret")
			return
		}

		plaintext, err := crypto.Decrypt(shared, nonce, body)
		if err != nil {
			logger.WithField("device_id", clientID).Warn("request body failed to decrypt")
			plainError(w, http.StatusBadRequest, "could not decrypt request body")
			return
		}

		rec := newRecorder()
		req := r.WithContext(withDevice(r.Context(), d))
		req.Body = io.NopCloser(bytes.NewReader(plaintext))
		req.ContentLength = int64(len(plaintext))

		next.ServeHTTP(rec, req)

		if !rec.success() {
			writeRecorded(w, rec)
			return
		}

		ciphertext, err := crypto.Encrypt(shared, nonce, rec.body.Bytes())
		if err != nil {
			logger.WithField("device_id", clientID).WithError(err).Error("failed to encrypt response")
			plainError(w, http.StatusInternalServerError, "failed to encrypt response")
			return
		}

		copyHeader(w.Header(), rec.header)
		w.WriteHeader(rec.status)
		_, _ = w.Write(ciphertext)
	})
}

func plainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

func writeRecorded(w http.ResponseWriter, rec *recorder) {
	copyHeader(w.Header(), rec.header)
	w.WriteHeader(rec.status)
	_, _ = w.Write(rec.body.Bytes())
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
