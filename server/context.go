package server

import (
	"context"

	"github.com/keybear/keybear/device"
)

type contextKey int

const (
	deviceContextKey contextKey = iota
	requestOutcomeContextKey
)

// withDevice returns a context carrying the authenticated device for the
// lifetime of the current request.
func withDevice(ctx context.Context, d device.Device) context.Context {
	return context.WithValue(ctx, deviceContextKey, d)
}

// deviceFromContext retrieves the device stashed by the Encrypted Request
// Pipeline. Handlers registered on authenticated routes may assume it is
// always present.
func deviceFromContext(ctx context.Context) (device.Device, bool) {
	d, ok := ctx.Value(deviceContextKey).(device.Device)
	return d, ok
}

// requestOutcome is a mutable box threaded through a request's context by
// requestLogger. The Encrypted Request Pipeline fills in deviceID once it
// has authenticated the caller, so the one log line requestLogger emits
// after the handler chain returns can report which device made the
// request, without requestLogger needing to know anything about
// authentication itself.
type requestOutcome struct {
	deviceID string
}

func withRequestOutcome(ctx context.Context, o *requestOutcome) context.Context {
	return context.WithValue(ctx, requestOutcomeContextKey, o)
}

func requestOutcomeFromContext(ctx context.Context) (*requestOutcome, bool) {
	o, ok := ctx.Value(requestOutcomeContextKey).(*requestOutcome)
	return o, ok
}
