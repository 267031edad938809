package sources_test

import (
	"net/http"
	"time"

	"github.com/9seconds/geocidr/geolib"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/mock"
)

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

const (
	testBlocksCSV = `network,geoname_id,registered_country_geoname_id,represented_country_geoname_id,is_anonymous_proxy,is_satellite_provider,postal_code,latitude,longitude,accuracy_radius
81.2.69.0/24,2643743,2635167,,0,0,EC1A,51.5142,-0.0931,5
198.51.100.0/24,,6252001,,0,0,,,,
203.0.113.0/24,,,,1,0,,,,
192.0.2.0/24,100,,,0,0,,not-a-float,,
`

	testLocationsCSV = "\ufeff" + `geoname_id,locale_code,continent_code,continent_name,country_iso_code,country_name,subdivision_1_iso_code,subdivision_1_name,subdivision_2_iso_code,subdivision_2_name,city_name,metro_code,time_zone,is_in_european_union
2643743,en,EU,Europe,GB,"United Kingdom",ENG,England,,,London,,Europe/London,0
6252001,en,NA,"North America",US,"United States",,,,,,,,0
2635167,en,EU,Europe,GB,"United Kingdom",,,,,,,,0
,en,EU,Europe,,,,,,,,,,0
`
)

type HTTPMockMixin struct{}

func (suite *HTTPMockMixin) SetupSuite() {
	httpmock.Activate()
}

func (suite *HTTPMockMixin) TearDownSuite() {
	httpmock.DeactivateAndReset()
}

func (suite *HTTPMockMixin) TearDownTest() {
	httpmock.Reset()
}

func makeTestHTTPClient() geolib.HTTPClient {
	return geolib.NewHTTPClient(&http.Client{},
		"test-agent",
		time.Millisecond,
		100,
		100,
		time.Minute,
		time.Minute)
}
