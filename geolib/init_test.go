package geolib_test

import (
	"context"

	"github.com/9seconds/geocidr/geolib"
	"github.com/stretchr/testify/mock"
)

type SourceMock struct {
	mock.Mock
}

func (m *SourceMock) Name() string {
	return m.Called().String(0)
}

func (m *SourceMock) Load(ctx context.Context) (*geolib.Dataset, error) {
	args := m.Called(ctx)

	return args.Get(0).(*geolib.Dataset), args.Error(1)
}

type ClosingSourceMock struct {
	SourceMock
}

func (m *ClosingSourceMock) Close() error {
	return m.Called().Error(0)
}

type EntityTableMock struct {
	mock.Mock
}

func (m *EntityTableMock) Lookup(ctx context.Context, geonameID int64) (geolib.LocationEntity, bool, error) {
	args := m.Called(ctx, geonameID)

	return args.Get(0).(geolib.LocationEntity), args.Bool(1), args.Error(2)
}

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) LookupError(address string, err error) {
	m.Called(address, err)
}

func (m *LoggerMock) LookupWarning(address string, err error) {
	m.Called(address, err)
}

func (m *LoggerMock) BuildWarning(name string, err error) {
	m.Called(name, err)
}

func (m *LoggerMock) UpdateInfo(name, msg string) {
	m.Called(name, msg)
}

func (m *LoggerMock) UpdateError(name string, err error) {
	m.Called(name, err)
}

func (m *LoggerMock) AllowAll() {
	m.On("LookupError", mock.Anything, mock.Anything).Maybe()
	m.On("LookupWarning", mock.Anything, mock.Anything).Maybe()
	m.On("BuildWarning", mock.Anything, mock.Anything).Maybe()
	m.On("UpdateInfo", mock.Anything, mock.Anything).Maybe()
	m.On("UpdateError", mock.Anything, mock.Anything).Maybe()
}
