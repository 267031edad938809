package main

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite

	fs afero.Fs
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
}

func (suite *ConfigTestSuite) Parse(content string) (*config, error) {
	suite.Require().NoError(afero.WriteFile(suite.fs, "config.hjson", []byte(content), 0o644))

	return parseConfig(suite.fs, "config.hjson")
}

func (suite *ConfigTestSuite) TestDefaults() {
	conf, err := suite.Parse(`{
        # comments are allowed
        listen: 127.0.0.1:8000
        source: {
            type: csv
        }
    }`)

	suite.NoError(err)
	suite.Equal("127.0.0.1:8000", conf.GetListen())
	suite.Equal(0, conf.GetWorkerPoolSize())
	suite.Equal(DefaultUpdateEvery, conf.GetUpdateEvery())
	suite.Equal(DefaultHTTPTimeout, conf.GetHTTPTimeout())
	suite.Equal(DefaultRateLimitInterval, conf.GetRateLimitInterval())
	suite.Equal(DefaultRateLimitBurst, conf.GetRateLimitBurst())
	suite.False(conf.GetBasicAuth().Enabled())
	suite.EqualValues(DefaultCacheItems, conf.GetCache().GetItems())
	suite.Equal(DefaultCacheTTL, conf.GetCache().GetTTL())
	suite.Equal("csv", conf.GetSource().GetType())
	suite.Equal(DefaultSourceDirectory, conf.GetSource().GetDirectory())
	suite.Empty(conf.GetSource().GetSpecificParameters())
}

func (suite *ConfigTestSuite) TestFull() {
	conf, err := suite.Parse(`{
        listen: ":8000"
        worker_pool_size: 100
        update_every: 0s
        http_timeout: 30s
        rate_limit_interval: 1s
        rate_limit_burst: 3
        basic_auth: {
            user: user
            password: password
        }
        cache: {
            items: 10
            ttl: 5m
        }
        source: {
            type: postgres
            directory: "/var/lib/geocidr"
            specific_parameters: {
                dsn: "postgres://localhost/geo"
                lazy: "true"
            }
        }
    }`)

	suite.NoError(err)
	suite.Equal(100, conf.GetWorkerPoolSize())
	suite.Equal(time.Duration(0), conf.GetUpdateEvery())
	suite.Equal(30*time.Second, conf.GetHTTPTimeout())
	suite.Equal(time.Second, conf.GetRateLimitInterval())
	suite.Equal(3, conf.GetRateLimitBurst())
	suite.True(conf.GetBasicAuth().Enabled())
	suite.EqualValues(10, conf.GetCache().GetItems())
	suite.Equal(5*time.Minute, conf.GetCache().GetTTL())
	suite.Equal("/var/lib/geocidr", conf.GetSource().GetDirectory())
	suite.Equal("postgres://localhost/geo", conf.GetSource().GetSpecificParameters()["dsn"])
	suite.True(boolParam(conf.GetSource().GetSpecificParameters()["lazy"]))
}

func (suite *ConfigTestSuite) TestIncorrect() {
	testData := map[string]string{
		"no file":   "",
		"not hjson": `{"listen": `,
		"incorrect listen": `{
            listen: localhost
            source: {type: "csv"}
        }`,
		"no source": `{
            listen: ":80"
        }`,
		"unknown source": `{
            listen: ":80"
            source: {type: "ip2location"}
        }`,
		"bad duration": `{
            listen: ":80"
            http_timeout: 10
            source: {type: "csv"}
        }`,
		"no password": `{
            listen: ":80"
            basic_auth: {user: "u"}
            source: {type: "csv"}
        }`,
	}

	for name, content := range testData {
		if content == "" {
			_, err := parseConfig(suite.fs, "unknown.hjson")
			suite.Error(err, name)

			continue
		}

		_, err := suite.Parse(content)
		suite.Error(err, name)
	}
}

func TestConfig(t *testing.T) {
	suite.Run(t, &ConfigTestSuite{})
}
