package server

import (
	"github.com/keybear/keybear/device"
	"github.com/keybear/keybear/password"
)

// clientIDHeader is the header authenticated and the nonce route use to
// identify the calling device, carried verbatim from the original
// project's middleware.
const clientIDHeader = "keybear-client-id"

// App bundles the process-wide, otherwise-global state every request
// handler needs: the server's long-term identity, the device registry,
// and the password store, threaded through request handlers as a single
// immutable value.
type App struct {
	Registry     *device.Registry
	Passwords    *password.Store
	ServerSecret [32]byte
	ServerPublic [32]byte
}

// NewApp constructs an App over an already-opened registry and password
// store, and the server's resolved identity key pair.
func NewApp(registry *device.Registry, passwords *password.Store, serverSecret, serverPublic [32]byte) *App {
	return &App{
		Registry:     registry,
		Passwords:    passwords,
		ServerSecret: serverSecret,
		ServerPublic: serverPublic,
	}
}
