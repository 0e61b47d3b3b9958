/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package rcache

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gookit/goutil/dump"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ulfpersson/rcache/cache"
)

type Config struct {
	AppName        string
	AppVersion     string
	ServerBootTime time.Time
	Service        ServiceConf
	Cache          CacheConf
	ApiServer      ApiserverConf `mapstructure:"apiserver"`
	Log            struct {
		File string `validate:"required"`
	}
	Internal InternalConf
}

type ServiceConf struct {
	Name    string `validate:"required"`
	Debug   *bool
	Verbose *bool
}

// CacheConf is the external knob surface of the record cache. Durations
// are given as strings in the config file ("30s", "5m") and decoded via
// the mapstructure duration hook.
type CacheConf struct {
	MaxNodes      int           `mapstructure:"max-nodes"`
	HighWater     int           `mapstructure:"highwater"`
	LowWater      int           `mapstructure:"lowwater"`
	CleanInterval time.Duration `mapstructure:"clean-interval"`
	CleanBatch    int           `mapstructure:"clean-batch"`
	MaxCacheTTL   uint32        `mapstructure:"max-cache-ttl"`
	NegCacheTTL   uint32        `mapstructure:"max-ncache-ttl"`
	MaxReportTTL  uint32        `mapstructure:"max-report-ttl"`
}

type ApiserverConf struct {
	Address string `validate:"required"`
	ApiKey  string `validate:"required"`
}

type InternalConf struct {
	RecordCache   *cache.Cache
	APIStopCh     chan struct{}
	CleanerStopCh chan struct{}
	StopOnce      sync.Once
}

// CacheOptions translates the config section into cache.Options; zero
// values keep the cache defaults.
func (conf *Config) CacheOptions(m cache.Metrics) cache.Options {
	return cache.Options{
		MaxNodes:      conf.Cache.MaxNodes,
		HighWater:     conf.Cache.HighWater,
		LowWater:      conf.Cache.LowWater,
		CleanInterval: conf.Cache.CleanInterval,
		CleanBatch:    conf.Cache.CleanBatch,
		MaxCacheTTL:   conf.Cache.MaxCacheTTL,
		NegCacheTTL:   conf.Cache.NegCacheTTL,
		MaxReportTTL:  conf.Cache.MaxReportTTL,
		Metrics:       m,
		Logger:        log.Default(),
		Verbose:       Globals.Verbose,
		Debug:         Globals.Debug,
	}
}

// ParseConfig reads the config file into conf and validates the required
// sections. Terminates on a broken config, like the daemon should.
func ParseConfig(conf *Config, cfgfile string) error {
	viper.SetConfigFile(cfgfile)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("could not load config %s: %v", cfgfile, err)
	}
	if Globals.Verbose {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	}

	if err := UnmarshalConfig(viper.GetViper(), conf); err != nil {
		return err
	}

	if conf.Service.Verbose != nil {
		Globals.Verbose = *conf.Service.Verbose || Globals.Verbose
	}
	if conf.Service.Debug != nil {
		Globals.Debug = *conf.Service.Debug || Globals.Debug
	}
	if Globals.Debug {
		dump.P(conf.Cache)
	}

	return ValidateConfig(conf, viper.ConfigFileUsed())
}

// UnmarshalConfig decodes a viper tree into conf with the duration hook
// enabled, so "clean-interval: 30s" works as expected.
func UnmarshalConfig(v *viper.Viper, conf *Config) error {
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(conf, hook); err != nil {
		return fmt.Errorf("config unmarshal error: %v", err)
	}
	return nil
}

func ValidateConfig(conf *Config, cfgfile string) error {
	var configsections = make(map[string]interface{}, 3)

	configsections["log"] = conf.Log
	configsections["service"] = conf.Service
	configsections["apiserver"] = conf.ApiServer

	return ValidateBySection(conf, configsections, cfgfile)
}

func ValidateBySection(conf *Config, configsections map[string]interface{}, cfgfile string) error {
	validate := validator.New()

	for section, data := range configsections {
		if Globals.Debug {
			log.Printf("ValidateBySection: validating section %q", section)
		}
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("config %q, section %q: missing required attributes:\n%v",
				cfgfile, section, err)
		}
	}
	return nil
}
