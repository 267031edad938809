package main

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/9seconds/geocidr/sources"
	"github.com/hjson/hjson-go"
	"github.com/spf13/afero"
)

const (
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultUpdateEvery       = 24 * time.Hour
	DefaultRateLimitInterval = 100 * time.Millisecond
	DefaultRateLimitBurst    = 10
	DefaultCacheItems        = 100000
	DefaultCacheTTL          = time.Hour
	DefaultSourceDirectory   = "."
)

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("cannot unmarshal duration: %w", err)
	}

	vv, ok := v.(string)
	if !ok {
		return fmt.Errorf("incorrect duration: %v", v)
	}

	dur, err := time.ParseDuration(vv)
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	d.Duration = dur

	return nil
}

type config struct {
	Listen            string          `json:"listen"`
	WorkerPoolSize    uint            `json:"worker_pool_size"`
	UpdateEvery       *duration       `json:"update_every"`
	HTTPTimeout       duration        `json:"http_timeout"`
	RateLimitInterval duration        `json:"rate_limit_interval"`
	RateLimitBurst    uint            `json:"rate_limit_burst"`
	BasicAuth         configBasicAuth `json:"basic_auth"`
	Cache             configCache     `json:"cache"`
	Source            configSource    `json:"source"`
}

func (c config) GetListen() string {
	return c.Listen
}

func (c config) GetWorkerPoolSize() int {
	return int(c.WorkerPoolSize)
}

// GetUpdateEvery returns a period of dataset updates. Explicit zero
// disables periodic updates.
func (c config) GetUpdateEvery() time.Duration {
	if c.UpdateEvery == nil {
		return DefaultUpdateEvery
	}

	return c.UpdateEvery.Duration
}

func (c config) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout.Duration == 0 {
		return DefaultHTTPTimeout
	}

	return c.HTTPTimeout.Duration
}

func (c config) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c config) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return int(c.RateLimitBurst)
}

func (c config) GetBasicAuth() configBasicAuth {
	return c.BasicAuth
}

func (c config) GetCache() configCache {
	return c.Cache
}

func (c config) GetSource() configSource {
	return c.Source
}

type configBasicAuth struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (c configBasicAuth) Enabled() bool {
	return c.User != ""
}

type configCache struct {
	Items uint     `json:"items"`
	TTL   duration `json:"ttl"`
}

func (c configCache) GetItems() uint {
	if c.Items == 0 {
		return DefaultCacheItems
	}

	return c.Items
}

func (c configCache) GetTTL() time.Duration {
	if c.TTL.Duration == 0 {
		return DefaultCacheTTL
	}

	return c.TTL.Duration
}

type configSource struct {
	Type               string            `json:"type"`
	Directory          string            `json:"directory"`
	SpecificParameters map[string]string `json:"specific_parameters"`
}

func (c configSource) GetType() string {
	return c.Type
}

func (c configSource) GetDirectory() string {
	if c.Directory == "" {
		return DefaultSourceDirectory
	}

	return c.Directory
}

func (c configSource) GetSpecificParameters() map[string]string {
	if c.SpecificParameters == nil {
		return map[string]string{}
	}

	return c.SpecificParameters
}

func parseConfig(fs afero.Fs, path string) (*config, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	conf := config{}
	rawMap := map[string]interface{}{}

	if err := hjson.Unmarshal(content, &rawMap); err != nil {
		return nil, fmt.Errorf("cannot parse hjson: %w", err)
	}

	rawBytes, _ := json.Marshal(rawMap)

	if err := json.Unmarshal(rawBytes, &conf); err != nil {
		return nil, fmt.Errorf("incorrect config structure: %w", err)
	}

	if _, _, err := net.SplitHostPort(conf.GetListen()); err != nil {
		return nil, fmt.Errorf("incorrect host:port for listen: %w", err)
	}

	if conf.GetBasicAuth().Enabled() && conf.GetBasicAuth().Password == "" {
		return nil, fmt.Errorf("password is required for basic auth user %s", conf.GetBasicAuth().User)
	}

	switch conf.GetSource().GetType() {
	case sources.NameCSV, sources.NameMMDB, sources.NamePostgres, sources.NameMaxmindCSV:
	case "":
		return nil, fmt.Errorf("source type is not defined")
	default:
		return nil, fmt.Errorf("unsupported source type %s", conf.GetSource().GetType())
	}

	return &conf, nil
}
