package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/apiml-sample-service/common"
	"github.com/ruteri/apiml-sample-service/config"
	"github.com/ruteri/apiml-sample-service/cryptoutils"
	"github.com/ruteri/apiml-sample-service/httpserver"
	"github.com/ruteri/apiml-sample-service/metrics"
)

var DevTLSFlag = &cli.BoolFlag{
	Name:  "dev-tls",
	Value: false,
	Usage: "serve a generated self-signed certificate instead of the configured ssl key pair",
}

// registrar is the registration handle the bootstrap drives.
type registrar interface {
	httpserver.Registrar
	SSLConfig() config.SSL
	Close()
}

type bootstrapOptions struct {
	// ConfigPath and APIDocPath are absolute.
	ConfigPath string
	APIDocPath string

	EagerRegister bool
	DevTLS        bool

	// Server is copied; its TLSConfig is set by bootstrap.
	Server  *httpserver.HTTPServerConfig
	Metrics *metrics.Metrics

	NewRegistrar func(cfg *config.ServiceConfiguration) (registrar, error)
}

type service struct {
	log          *slog.Logger
	server       *httpserver.Server
	registration registrar

	cancelRegister context.CancelFunc
	registerDone   chan struct{}
}

// bootstrap brings the service up: configuration, registration handle, TLS, listener
// and, last, the eager registration. Any failure before the listener is bound aborts
// startup with nothing listening.
func bootstrap(log *slog.Logger, opts *bootstrapOptions) (*service, error) {
	log.Info("Loading service configuration", "path", opts.ConfigPath)
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	registration, err := opts.NewRegistrar(cfg)
	if err != nil {
		return nil, fmt.Errorf("create discovery enabler: %w", err)
	}

	tlsConfig, err := serverTLSConfig(log, registration.SSLConfig(), opts.DevTLS)
	if err != nil {
		registration.Close()
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}

	handler := httpserver.NewHandler(&httpserver.ServiceContext{
		Registrar:  registration,
		APIDocPath: opts.APIDocPath,
		BuildInfo:  common.NewBuildInfo(time.Now()),
		Log:        log,
	})

	serverCfg := *opts.Server
	serverCfg.TLSConfig = tlsConfig
	server, err := httpserver.New(&serverCfg, handler, opts.Metrics)
	if err != nil {
		registration.Close()
		return nil, fmt.Errorf("create server: %w", err)
	}

	if err := server.RunInBackground(); err != nil {
		registration.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &service{
		log:            log,
		server:         server,
		registration:   registration,
		cancelRegister: cancel,
		registerDone:   make(chan struct{}),
	}

	if !opts.EagerRegister {
		close(s.registerDone)
		return s, nil
	}

	go func() {
		defer close(s.registerDone)
		if err := registration.Register(ctx); err != nil {
			log.Warn("Startup registration failed", "err", err)
		}
	}()
	return s, nil
}

func serverTLSConfig(log *slog.Logger, ssl config.SSL, dev bool) (*tls.Config, error) {
	if dev {
		log.Warn("Serving a generated self-signed certificate")
		return cryptoutils.NewDevServerTLSConfig()
	}
	return cryptoutils.NewServerTLSConfig(ssl)
}

func (s *service) Addr() net.Addr {
	return s.server.Addr()
}

// stop shuts the listener down, abandons a startup registration still retrying and,
// if asked, removes the instance from the discovery service.
func (s *service) stop(unregister bool) {
	s.cancelRegister()
	s.server.Shutdown()
	<-s.registerDone

	if unregister {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.registration.Unregister(ctx); err != nil {
			s.log.Warn("Unregistration failed", "err", err)
		}
	}
	s.registration.Close()
}
