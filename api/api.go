package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/config"
)

// API represents the liveness and status http service
type API struct {
	ctx         context.Context
	cancel      context.CancelFunc
	isConnected bool
	mutex       sync.RWMutex
	config      config.API
	routes      []config.Route
	server      *http.Server
	listener    net.Listener
}

// New creates a new api endpoint
func New(ctx context.Context, cfg config.API, routes []config.Route) (*API, error) {
	ctx, cancel := context.WithCancel(ctx)
	t := &API{
		ctx:    ctx,
		config: cfg,
		cancel: cancel,
		routes: routes,
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		cancel()
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return t, nil
}

// Handler returns the http routes served by the api
func (t *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", t.index).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/routes", t.relays).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Connect starts serving in the background. It returns once the port is bound.
func (t *API) Connect(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.server != nil {
		t.server.Close()
		t.server = nil
		t.cancel()
	}
	t.ctx, t.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", t.config.Addr())
	if err != nil {
		return errors.Wrapf(err, "listen %s", t.config.Addr())
	}
	t.listener = listener
	server := &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	t.server = server

	log.Info().Msgf("api listening on %s...", listener.Addr())

	go func() {
		err := server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api serve")
		}
		t.mutex.Lock()
		if t.server == server {
			t.isConnected = false
		}
		t.mutex.Unlock()
	}()

	t.isConnected = true
	log.Info().Msgf("api started successfully")
	return nil
}

// Addr returns the bound address, empty when not connected
func (t *API) Addr() string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// IsConnected returns if the server is listening
func (t *API) IsConnected() bool {
	t.mutex.RLock()
	isConnected := t.isConnected
	t.mutex.RUnlock()
	return isConnected
}

// Disconnect gracefully stops a previously started server.
// If called while the server is not running, returns nil
func (t *API) Disconnect(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.isConnected || t.server == nil {
		log.Debug().Msg("api is already disconnected, skipping disconnect")
		return nil
	}
	err := t.server.Shutdown(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("api disconnect")
	}
	t.cancel()
	t.server = nil
	t.listener = nil
	t.isConnected = false
	return nil
}

func (t *API) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("OK"))
	if err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
