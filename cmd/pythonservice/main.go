package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/apiml-sample-service/cmd/flags"
	"github.com/ruteri/apiml-sample-service/common"
	"github.com/ruteri/apiml-sample-service/config"
	"github.com/ruteri/apiml-sample-service/enabler"
	"github.com/ruteri/apiml-sample-service/metrics"
)

var appFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Value:   config.DefaultPath,
		Usage:   "service configuration file, relative paths are resolved against the install directory",
		EnvVars: []string{"SERVICE_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "listen-addr",
		Value:   "0.0.0.0:10018",
		Usage:   "address to listen on for the HTTPS API",
		EnvVars: []string{"LISTEN_ADDR"},
	},
	&cli.StringFlag{
		Name:  "apidoc",
		Value: "pythonSwagger.json",
		Usage: "swagger document served on /pythonservice/apidoc, resolved against the working directory at startup",
	},
	&cli.BoolFlag{
		Name:  "eager-register",
		Value: true,
		Usage: "register with the discovery service at startup",
	},
	&cli.BoolFlag{
		Name:  "unregister-on-shutdown",
		Value: false,
		Usage: "unregister from the discovery service before exiting",
	},
	DevTLSFlag,
	flags.LogServiceFlagFn(common.ServiceName),
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "pythonservice",
		Usage: "Sample service onboarded to the API Mediation Layer discovery service",
		Flags: appFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			configPath, err := config.ResolveInstallPath(cCtx.String("config"))
			if err != nil {
				logger.Error("Failed to resolve configuration path", "err", err)
				return err
			}

			apiDocPath, err := filepath.Abs(cCtx.String("apidoc"))
			if err != nil {
				return fmt.Errorf("resolve apidoc path: %w", err)
			}

			m := metrics.NewMetrics()
			svc, err := bootstrap(logger, &bootstrapOptions{
				ConfigPath:    configPath,
				APIDocPath:    apiDocPath,
				EagerRegister: cCtx.Bool("eager-register"),
				DevTLS:        cCtx.Bool(DevTLSFlag.Name),
				Server:        flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"), nil),
				Metrics:       m,
				NewRegistrar: func(cfg *config.ServiceConfiguration) (registrar, error) {
					e, err := enabler.New(cfg, enabler.WithLogger(logger), enabler.WithMetrics(m))
					if err != nil {
						return nil, err
					}
					return e, nil
				},
			})
			if err != nil {
				logger.Error("Startup failed", "err", err)
				return err
			}

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop", "address", svc.Addr().String())
			<-exit
			logger.Info("Shutdown signal received")

			svc.stop(cCtx.Bool("unregister-on-shutdown"))

			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
