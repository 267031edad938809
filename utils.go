package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/9seconds/geocidr/geolib"
	"github.com/9seconds/geocidr/sources"
	"github.com/spf13/afero"
)

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeSource(ctx context.Context, fs afero.Fs, conf *config, logger geolib.Logger) (geolib.Source, error) {
	sourceConf := conf.GetSource()
	params := sourceConf.GetSpecificParameters()

	switch sourceConf.GetType() {
	case sources.NameCSV:
		sourceFs, err := makeSourceFs(fs, sourceConf)
		if err != nil {
			return nil, err
		}

		return sources.NewCSV(sourceFs, params["blocks_file"], params["locations_file"], logger), nil
	case sources.NameMMDB:
		sourceFs, err := makeSourceFs(fs, sourceConf)
		if err != nil {
			return nil, err
		}

		return sources.NewMMDB(sourceFs, params["file"], params["locale"], logger), nil
	case sources.NamePostgres:
		db, err := sources.OpenPostgres(ctx, params["dsn"])
		if err != nil {
			return nil, fmt.Errorf("cannot create postgres source: %w", err)
		}

		return sources.NewPostgres(db,
			boolParam(params["lazy"]),
			conf.GetCache().GetItems(),
			conf.GetCache().GetTTL(),
			logger), nil
	case sources.NameMaxmindCSV:
		sourceFs, err := makeSourceFs(fs, sourceConf)
		if err != nil {
			return nil, err
		}

		source, err := sources.NewMaxmindCSV(sourceFs,
			makeNewHTTPClient(conf),
			"/",
			params["license_key"],
			params["locale"],
			logger)
		if err != nil {
			return nil, fmt.Errorf("cannot create maxmind_csv source: %w", err)
		}

		return source, nil
	}

	return nil, fmt.Errorf("unsupported source type: %s", sourceConf.GetType())
}

func makeSourceFs(fs afero.Fs, conf configSource) (afero.Fs, error) {
	if err := fs.MkdirAll(conf.GetDirectory(), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create source directory: %w", err)
	}

	return afero.NewBasePathFs(fs, conf.GetDirectory()), nil
}

func makeNewHTTPClient(conf *config) geolib.HTTPClient {
	httpClient := &http.Client{
		Timeout: conf.GetHTTPTimeout(),
	}

	return geolib.NewHTTPClient(httpClient,
		"geocidr/"+version,
		conf.GetRateLimitInterval(),
		conf.GetRateLimitBurst(),
		geolib.DefaultCircuitBreakerOpenThreshold,
		geolib.DefaultCircuitBreakerHalfOpenTimeout,
		geolib.DefaultCircuitBreakerResetFailuresTimeout)
}

func boolParam(param string) bool {
	switch strings.ToLower(param) {
	case "1", "true", "enabled", "yes":
		return true
	default:
		return false
	}
}
