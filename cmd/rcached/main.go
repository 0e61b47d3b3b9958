/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ulfpersson/rcache/cache"
	"github.com/ulfpersson/rcache/metrics/prom"
	"github.com/ulfpersson/rcache/rcache"
)

var appVersion = "v0.3.0"

func mainloop(conf *rcache.Config) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	hupper := make(chan os.Signal, 1)
	signal.Notify(hupper, syscall.SIGHUP)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		for {
			select {
			case <-exit:
				log.Println("mainloop: Exit signal received. Cleaning up.")
				close(conf.Internal.CleanerStopCh)
				wg.Done()
			case <-hupper:
				// SIGHUP flushes the cache; config is not reread.
				removed := conf.Internal.RecordCache.FlushAll()
				log.Printf("mainloop: SIGHUP received. Flushed cache (%d nodes invalidated).", removed)
			case <-conf.Internal.APIStopCh:
				log.Println("mainloop: Stop command received. Cleaning up.")
				close(conf.Internal.CleanerStopCh)
				wg.Done()
			}
		}
	}()
	wg.Wait()

	fmt.Println("mainloop: leaving signal dispatcher")
}

func main() {
	var conf rcache.Config

	conf.ServerBootTime = time.Now()
	conf.AppName = "rcached"
	conf.AppVersion = appVersion

	var cfgFile string
	flag.StringVar(&cfgFile, "config", rcache.DefaultCfgFile, "config file")
	flag.BoolVarP(&rcache.Globals.Debug, "debug", "d", false, "Debug mode")
	flag.BoolVarP(&rcache.Globals.Verbose, "verbose", "v", false, "Verbose mode")
	flag.Parse()

	if err := rcache.ParseConfig(&conf, cfgFile); err != nil {
		log.Fatalf("Error parsing config: %v", err)
	}

	logfile := viper.GetString("log.file")
	rcache.SetupLogging(logfile)
	fmt.Printf("Logging to file: %s\n", logfile)

	fmt.Printf("rcached version %s starting.\n", appVersion)

	rc := cache.New(conf.CacheOptions(prom.New(nil, "rcached")))
	conf.Internal.RecordCache = rc

	conf.Internal.CleanerStopCh = make(chan struct{})
	go rc.CleanerEngine(conf.Internal.CleanerStopCh)

	conf.Internal.APIStopCh = make(chan struct{})
	rcache.APIdispatcher(&conf, conf.Internal.APIStopCh)

	mainloop(&conf)
}
