// Command keybear runs the password vault server: a loopback-only HTTP
// service reachable only from the local machine (typically fronted by a
// hidden-service listener), storing enrolled devices and encrypted
// passwords in an embedded key-value store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keybear/keybear/config"
	"github.com/keybear/keybear/crypto"
	"github.com/keybear/keybear/device"
	"github.com/keybear/keybear/kv"
	"github.com/keybear/keybear/password"
	"github.com/keybear/keybear/server"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run())
}

// run wires the application together and blocks serving requests until an
// interrupt signal arrives or startup fails. It returns an exit code
// rather than calling os.Exit directly so deferred cleanup always runs.
func run() int {
	configPath := flag.String("c", "", "path to the configuration file (default "+config.DefaultConfigPath+")")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Error("failed to load configuration")
		return 1
	}

	secret, err := crypto.EnsureKey(cfg.ResolvedKeyPath())
	if err != nil {
		logrus.WithError(err).Error("failed to load server key material")
		return 1
	}
	public := crypto.PublicOf(secret)

	store, err := kv.Open(cfg.ResolvedDatabasePath())
	if err != nil {
		logrus.WithError(err).Error("failed to open database")
		return 1
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("failed to close database cleanly")
		}
	}()

	app := server.NewApp(device.NewRegistry(store), password.NewStore(store), secret, public)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.ResolvedServerPort())
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.NewRouter(app),
	}
	httpServer.SetKeepAlivesEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server exited unexpectedly")
			return 1
		}
	case <-ctx.Done():
		logrus.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("graceful shutdown failed")
		}
	}

	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.FromDefaultFileOrEmpty()
	}
	return config.FromFile(path)
}

func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logrus.WithField("signal", sig.String()).Info("received interrupt signal, shutting down")
		cancel()
	}()
}
