package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rsclarke/ddnsd/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ServerConfig struct {
	Addr              string
	Handler           http.Handler
	TLSConfig         *tls.Config
	Logger            *zap.Logger
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

func DefaultServerConfig(addr string, handler http.Handler, logger *zap.Logger) ServerConfig {
	return ServerConfig{
		Addr:              addr,
		Handler:           handler,
		Logger:            logger,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
}

// ManagedServer runs an http.Server in the background. The listener is
// bound synchronously in Start so address conflicts surface immediately;
// later serve failures are delivered on Err.
type ManagedServer struct {
	server   *http.Server
	logger   *zap.Logger
	name     string
	listener net.Listener
	errCh    chan error
}

func NewManagedServer(name string, cfg ServerConfig) *ManagedServer {
	errLog, _ := zap.NewStdLogAt(cfg.Logger, zapcore.ErrorLevel)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           cfg.Handler,
		TLSConfig:         cfg.TLSConfig,
		ErrorLog:          errLog,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return &ManagedServer{
		server: srv,
		logger: cfg.Logger,
		name:   name,
		errCh:  make(chan error, 1),
	}
}

// Start binds the listen address and begins serving.
func (m *ManagedServer) Start() error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("%s failed to start: %w", m.name, err)
	}
	m.listener = ln

	useTLS := m.server.TLSConfig != nil
	m.logger.Info("starting server",
		logging.Component(m.name),
		logging.Addr(ln.Addr().String()),
		zap.Bool("tls", useTLS))

	go func() {
		var err error
		if useTLS {
			err = m.server.ServeTLS(ln, "", "")
		} else {
			err = m.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.errCh <- err
		}
		close(m.errCh)
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (m *ManagedServer) Addr() string {
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.server.Addr
}

// Err delivers a serve failure, and is closed when the server stops.
func (m *ManagedServer) Err() <-chan error {
	return m.errCh
}

func (m *ManagedServer) Shutdown(ctx context.Context) {
	if m.listener == nil {
		return
	}
	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Warn("shutdown error", logging.Component(m.name), zap.Error(err))
	}
}
