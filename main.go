package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/9seconds/geocidr/geolib"
	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

const shutdownTimeout = 10 * time.Second

var (
	version = "dev"

	app = kingpin.New(
		"geocidr",
		"IPv4 geolocation service based on CIDR network datasets")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("GEOCIDR_DEBUG").
		Bool()
	configPath = app.Arg("config-path", "Path to the config.").
			Required().
			String()
)

func main() {
	app.Version(version)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run() error {
	fs := afero.NewOsFs()

	conf, err := parseConfig(fs, *configPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	ctx, cancel := makeRootContext()
	defer cancel()

	logger := newLogger(os.Stderr, *debug)

	source, err := makeSource(ctx, fs, conf, logger)
	if err != nil {
		return fmt.Errorf("cannot initialize a source: %w", err)
	}

	resolver := geolib.NewResolver(logger, conf.GetWorkerPoolSize())
	defer resolver.Shutdown()

	updater := geolib.NewUpdater(source, resolver, logger, conf.GetUpdateEvery())
	defer updater.Shutdown()

	if err := updater.Start(); err != nil {
		return fmt.Errorf("cannot start an updater: %w", err)
	}

	var handler http.Handler = resolver

	if auth := conf.GetBasicAuth(); auth.Enabled() {
		handler = &basicAuthMiddleware{
			handler:  handler,
			user:     []byte(auth.User),
			password: []byte(auth.Password),
		}
	}

	srv := &http.Server{
		Addr:              conf.GetListen(),
		Handler:           handler,
		ReadHeaderTimeout: conf.GetHTTPTimeout(),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		srv.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server is stopped: %w", err)
	}

	return nil
}
