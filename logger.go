package main

import (
	"io"

	"github.com/9seconds/geocidr/geolib"
	"github.com/rs/zerolog"
)

type logger struct {
	lookupLog zerolog.Logger
	buildLog  zerolog.Logger
	updateLog zerolog.Logger
}

func (l *logger) LookupError(address string, err error) {
	l.lookupLog.Error().Str("ip", address).Err(err).Msg("")
}

func (l *logger) LookupWarning(address string, err error) {
	l.lookupLog.Warn().Str("ip", address).Err(err).Msg("")
}

func (l *logger) BuildWarning(name string, err error) {
	l.buildLog.Warn().Str("source", name).Err(err).Msg("")
}

func (l *logger) UpdateInfo(name string, msg string) {
	l.updateLog.Info().Str("source", name).Msg(msg)
}

func (l *logger) UpdateError(name string, err error) {
	l.updateLog.Error().Str("source", name).Err(err).Msg("")
}

func newLogger(out io.Writer, debug bool) geolib.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	base := zerolog.New(out).Level(zerolog.InfoLevel)
	if debug {
		base = zerolog.New(zerolog.ConsoleWriter{Out: out}).Level(zerolog.DebugLevel)
	}

	base = base.With().Timestamp().Stack().Logger()

	return &logger{
		lookupLog: base.With().Str("event_name", "lookup").Logger(),
		buildLog:  base.With().Str("event_name", "build").Logger(),
		updateLog: base.With().Str("event_name", "update").Logger(),
	}
}
