package geolib_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/9seconds/geocidr/geolib"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ResolverTestSuite struct {
	suite.Suite

	logMock  *LoggerMock
	resolver *geolib.Resolver
	ctx      context.Context
}

func (suite *ResolverTestSuite) SetupTest() {
	suite.logMock = &LoggerMock{}
	suite.logMock.AllowAll()

	suite.ctx = context.Background()
	suite.resolver = geolib.NewResolver(suite.logMock, 10)
}

func (suite *ResolverTestSuite) TearDownTest() {
	suite.resolver.Shutdown()
	suite.logMock.AssertExpectations(suite.T())
}

func (suite *ResolverTestSuite) Install(dataset *geolib.Dataset) *geolib.Snapshot {
	snapshot := geolib.NewSnapshot("test", dataset, suite.logMock)

	suite.resolver.Swap(snapshot)

	return snapshot
}

func (suite *ResolverTestSuite) TestNotReady() {
	_, err := suite.resolver.Resolve(suite.ctx, "1.1.1.1")

	suite.True(errors.Is(err, geolib.ErrNotReady))

	_, err = suite.resolver.ResolveAll(suite.ctx, []string{"1.1.1.1"})

	suite.True(errors.Is(err, geolib.ErrNotReady))
	suite.Nil(suite.resolver.Snapshot())
}

func (suite *ResolverTestSuite) TestShutdown() {
	suite.Install(&geolib.Dataset{})
	suite.resolver.Shutdown()

	_, err := suite.resolver.Resolve(suite.ctx, "1.1.1.1")

	suite.True(errors.Is(err, geolib.ErrResolverShutdown))
}

func (suite *ResolverTestSuite) TestMoreSpecificWins() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "198.51.100.0/24", GeonameID: 100},
			{Network: "198.51.100.0/25", GeonameID: 200},
		},
		Entities: geolib.MemoryEntityTable{
			100: {GeonameID: 100, CountryISOCode: "US"},
			200: {GeonameID: 200, CountryISOCode: "US", CityName: "Springfield"},
		},
	})

	location, err := suite.resolver.Resolve(suite.ctx, "198.51.100.10")

	suite.NoError(err)
	suite.Equal("Springfield", location.CityName)
	suite.Equal("US", location.CountryISOCode)
	suite.Equal("198.51.100.0/25", location.Network)
	suite.EqualValues(200, location.GeonameID)
}

func (suite *ResolverTestSuite) TestNoMatch() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "198.51.100.0/24", GeonameID: 100},
		},
		Entities: geolib.MemoryEntityTable{
			100: {GeonameID: 100},
		},
	})

	_, err := suite.resolver.Resolve(suite.ctx, "203.0.113.5")

	suite.True(errors.Is(err, geolib.ErrNoMatch))
	suite.logMock.AssertNotCalled(suite.T(), "LookupError", mock.Anything, mock.Anything)
}

func (suite *ResolverTestSuite) TestInvalidAddress() {
	suite.Install(&geolib.Dataset{})

	for _, v := range []string{"not-an-ip", "", "256.1.1.1", "2001:db8::1", "1.2.3.4/24"} {
		_, err := suite.resolver.Resolve(suite.ctx, v)

		suite.True(errors.Is(err, geolib.ErrInvalidAddress), v)
	}
}

func (suite *ResolverTestSuite) TestIPv4MappedAddress() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "192.0.2.0/24", GeonameID: 1},
		},
		Entities: geolib.MemoryEntityTable{
			1: {GeonameID: 1},
		},
	})

	location, err := suite.resolver.Resolve(suite.ctx, "::ffff:192.0.2.1")

	suite.NoError(err)
	suite.Equal("192.0.2.0/24", location.Network)
}

func (suite *ResolverTestSuite) TestMissingEntity() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "10.0.0.0/8", GeonameID: 5},
		},
		Entities: geolib.MemoryEntityTable{},
	})

	_, err := suite.resolver.Resolve(suite.ctx, "10.1.2.3")

	suite.True(errors.Is(err, geolib.ErrMissingEntity))
	suite.False(errors.Is(err, geolib.ErrNoMatch))
}

func (suite *ResolverTestSuite) TestEntityLookupFailure() {
	tableMock := &EntityTableMock{}
	tableMock.On("Lookup", mock.Anything, int64(5)).
		Return(geolib.LocationEntity{}, false, errors.New("connection refused"))

	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "10.0.0.0/8", GeonameID: 5},
		},
		Entities: tableMock,
	})

	_, err := suite.resolver.Resolve(suite.ctx, "10.1.2.3")

	suite.True(errors.Is(err, geolib.ErrEntityLookup))
	suite.False(errors.Is(err, geolib.ErrMissingEntity))
	tableMock.AssertExpectations(suite.T())
}

func (suite *ResolverTestSuite) TestAbsentFieldsStayAbsent() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{
				Network:        "192.0.2.0/24",
				GeonameID:      1,
				Latitude:       geolib.Float64(0),
				AccuracyRadius: geolib.Int64(100),
			},
		},
		Entities: geolib.MemoryEntityTable{
			1: {GeonameID: 1, CountryISOCode: "DE"},
		},
	})

	location, err := suite.resolver.Resolve(suite.ctx, "192.0.2.1")

	suite.NoError(err)
	suite.Nil(location.Longitude)
	suite.Nil(location.RegisteredCountryGeonameID)
	suite.Nil(location.RepresentedCountryGeonameID)
	suite.Equal(0.0, *location.Latitude)
	suite.EqualValues(100, *location.AccuracyRadius)
	suite.Empty(location.CityName)
	suite.Empty(location.PostalCode)
}

func (suite *ResolverTestSuite) TestIdempotent() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "192.0.2.0/24", GeonameID: 1, Latitude: geolib.Float64(1.5)},
		},
		Entities: geolib.MemoryEntityTable{
			1: {GeonameID: 1, CityName: "Berlin"},
		},
	})

	first, err := suite.resolver.Resolve(suite.ctx, "192.0.2.1")
	suite.NoError(err)

	second, err := suite.resolver.Resolve(suite.ctx, "192.0.2.1")
	suite.NoError(err)

	suite.Equal(first, second)
	suite.NotSame(first.Latitude, second.Latitude)
}

func (suite *ResolverTestSuite) TestAmbiguousIsReported() {
	logMock := &LoggerMock{}
	logMock.On("BuildWarning", "test", mock.Anything).Once()
	logMock.On("LookupWarning", "192.0.2.1", mock.Anything).Once()

	snapshot := geolib.NewSnapshot("test", &geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "192.0.2.0/24", GeonameID: 1},
			{Network: "192.0.2.0/24", GeonameID: 2},
		},
		Entities: geolib.MemoryEntityTable{
			1: {GeonameID: 1, CityName: "First"},
			2: {GeonameID: 2, CityName: "Second"},
		},
	}, logMock)

	suite.Equal(1, snapshot.Issues())

	location, err := snapshot.Resolve(suite.ctx, net.ParseIP("192.0.2.1"))

	suite.NoError(err)
	suite.Equal("First", location.CityName)
	logMock.AssertExpectations(suite.T())
}

func (suite *ResolverTestSuite) TestSwapDuringQuery() {
	lookupStarted := make(chan struct{})
	releaseLookup := make(chan struct{})

	tableMock := &EntityTableMock{}
	tableMock.On("Lookup", mock.Anything, int64(1)).
		Run(func(_ mock.Arguments) {
			close(lookupStarted)
			<-releaseLookup
		}).
		Return(geolib.LocationEntity{GeonameID: 1, CityName: "Old"}, true, nil).
		Once()

	oldSnapshot := suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "192.0.2.0/24", GeonameID: 1},
		},
		Entities: tableMock,
	})

	var (
		location geolib.ResolvedLocation
		err      error
		wg       sync.WaitGroup
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		location, err = suite.resolver.Resolve(suite.ctx, "192.0.2.10")
	}()

	<-lookupStarted

	newSnapshot := geolib.NewSnapshot("test", &geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "192.0.2.0/25", GeonameID: 2},
		},
		Entities: geolib.MemoryEntityTable{
			2: {GeonameID: 2, CityName: "New"},
		},
	}, suite.logMock)

	suite.Same(oldSnapshot, suite.resolver.Swap(newSnapshot))

	close(releaseLookup)
	wg.Wait()

	suite.NoError(err)
	suite.Equal("Old", location.CityName)
	suite.Equal("192.0.2.0/24", location.Network)

	location, err = suite.resolver.Resolve(suite.ctx, "192.0.2.10")

	suite.NoError(err)
	suite.Equal("New", location.CityName)
	suite.Equal("192.0.2.0/25", location.Network)
	tableMock.AssertExpectations(suite.T())
}

func (suite *ResolverTestSuite) TestResolveAll() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "192.0.2.0/24", GeonameID: 1},
			{Network: "198.51.100.0/24", GeonameID: 2},
			{Network: "10.0.0.0/8", GeonameID: 3},
		},
		Entities: geolib.MemoryEntityTable{
			1: {GeonameID: 1, CityName: "One"},
			2: {GeonameID: 2, CityName: "Two"},
		},
	})

	addresses := []string{"192.0.2.1", "junk", "198.51.100.1", "203.0.113.1", "10.0.0.1"}

	results, err := suite.resolver.ResolveAll(suite.ctx, addresses)

	suite.NoError(err)
	suite.Len(results, len(addresses))

	for i, v := range results {
		suite.Equal(addresses[i], v.Address)
	}

	suite.True(results[0].OK())
	suite.Equal("One", results[0].Location.CityName)
	suite.True(errors.Is(results[1].Err, geolib.ErrInvalidAddress))
	suite.True(results[2].OK())
	suite.Equal("Two", results[2].Location.CityName)
	suite.True(errors.Is(results[3].Err, geolib.ErrNoMatch))
	suite.True(errors.Is(results[4].Err, geolib.ErrMissingEntity))
}

func (suite *ResolverTestSuite) TestResolveAllCancelledContext() {
	suite.Install(&geolib.Dataset{})

	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.resolver.ResolveAll(ctx, []string{"1.1.1.1"})

	suite.True(errors.Is(err, geolib.ErrContextIsClosed))
}

func (suite *ResolverTestSuite) TestStats() {
	suite.Install(&geolib.Dataset{
		Ranges: []geolib.NetworkRange{
			{Network: "192.0.2.0/24", GeonameID: 1},
			{Network: "10.0.0.0/8", GeonameID: 3},
			{Network: "garbage", GeonameID: 4},
		},
		Entities: geolib.MemoryEntityTable{
			1: {GeonameID: 1},
		},
	})

	suite.resolver.Resolve(suite.ctx, "192.0.2.1")   // nolint: errcheck
	suite.resolver.Resolve(suite.ctx, "junk")        // nolint: errcheck
	suite.resolver.Resolve(suite.ctx, "203.0.113.1") // nolint: errcheck
	suite.resolver.Resolve(suite.ctx, "10.0.0.1")    // nolint: errcheck

	data, err := suite.resolver.Stats().MarshalJSON()
	suite.NoError(err)

	stats := map[string]interface{}{}
	suite.NoError(json.Unmarshal(data, &stats))

	suite.Equal("test", stats["dataset"])
	suite.EqualValues(2, stats["networks"])
	suite.EqualValues(1, stats["issues"])
	suite.EqualValues(1, stats["success_count"])
	suite.EqualValues(1, stats["invalid_address_count"])
	suite.EqualValues(1, stats["no_match_count"])
	suite.EqualValues(1, stats["missing_entity_count"])
	suite.EqualValues(0, stats["failure_count"])
	suite.EqualValues(0, stats["ambiguous_count"])
	suite.InDelta(time.Now().Unix(), stats["last_used"], 5)
	suite.InDelta(time.Now().Unix(), stats["last_updated"], 5)
}

func (suite *ResolverTestSuite) TestDefaultWorkerPoolSize() {
	for _, size := range []int{0, -1} {
		var resolver *geolib.Resolver

		suite.NotPanics(func() {
			resolver = geolib.NewResolver(suite.logMock, size)
		})

		resolver.Swap(geolib.NewSnapshot("test", &geolib.Dataset{
			Ranges: []geolib.NetworkRange{
				{Network: "10.0.0.0/8", GeonameID: 1},
			},
			Entities: geolib.MemoryEntityTable{
				1: {GeonameID: 1, CountryISOCode: "DE"},
			},
		}, suite.logMock))

		results, err := resolver.ResolveAll(suite.ctx, []string{"10.1.1.1", "11.1.1.1"})

		suite.NoError(err)
		suite.Len(results, 2)
		suite.Equal("DE", results[0].Location.CountryISOCode)
		suite.True(errors.Is(results[1].Err, geolib.ErrNoMatch))

		resolver.Shutdown()
	}
}

func TestResolver(t *testing.T) {
	suite.Run(t, &ResolverTestSuite{})
}
