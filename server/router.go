package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the full /v1 route table. The loopback guard wraps
// every route; the request logger wraps every route too, so each one
// produces exactly one structured log line; the encrypted request
// pipeline wraps only the routes whose bodies are ciphertext.
func NewRouter(a *App) http.Handler {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Use(requestLogger)

		r.Post("/register", a.Register)
		r.Post("/nonce", a.Nonce)

		r.Group(func(r chi.Router) {
			r.Use(a.EncryptedPipeline)

			r.Get("/devices", a.ListDevices)
			r.Get("/verification_devices", a.ListVerificationDevices)
			r.Post("/verify", a.Verify)

			r.Get("/passwords", a.ListPasswords)
			r.Get("/passwords/{id}", a.GetPassword)
			r.Post("/passwords", a.CreatePassword)
			r.Put("/passwords/{id}", a.UpdatePassword)
			r.Delete("/passwords/{id}", a.DeletePassword)
		})
	})

	return LoopbackGuard(r)
}

// statusWriter records the status code a handler wrote, so middleware
// wrapping it can observe the outcome after the handler returns.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestLogger emits one structured line per request: method, path,
// device id (once the Encrypted Request Pipeline has authenticated the
// caller), and outcome. It wraps every /v1 route, authenticated or not,
// so unauthenticated routes like /register and /nonce are covered the
// same as encrypted ones.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome := &requestOutcome{}
		ctx := withRequestOutcome(r.Context(), outcome)
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r.WithContext(ctx))

		fields := logrus.Fields{
			"function": "requestLogger",
			"package":  "server",
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.status,
			"outcome":  outcomeLabel(ww.status),
		}
		if outcome.deviceID != "" {
			fields["device_id"] = outcome.deviceID
		}
		logrus.WithFields(fields).Info("request handled")
	})
}

func outcomeLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "success"
	case status >= 400 && status < 500:
		return "rejected"
	default:
		return "error"
	}
}
