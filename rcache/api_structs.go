/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package rcache

import (
	"net/http"
	"time"

	"github.com/ulfpersson/rcache/cache"
)

type Api struct {
	Name       string
	Client     *http.Client
	BaseUrl    string
	apiKey     string
	Authmethod string
	Verbose    bool
	Debug      bool
}

type PingPost struct {
	Msg   string
	Pings int
}

type PingResponse struct {
	Time     time.Time
	BootTime time.Time
	Client   string
	Msg      string
	Pings    int
	Pongs    int
}

type CommandPost struct {
	Command string // "status" | "stop"
}

type CommandResponse struct {
	AppName  string
	Time     time.Time
	Status   string
	Msg      string
	Error    bool
	ErrorMsg string
}

// CachePost carries the control-channel cache operations. Name targets
// arrive already parsed; flushname and flushtree succeed with Removed == 0
// when nothing existed at or under the target.
type CachePost struct {
	Command string // "flush" | "flushname" | "flushtree" | "dump" | "status"
	Name    string // target owner name for flushname/flushtree
}

type CacheResponse struct {
	AppName  string
	Time     time.Time
	Status   string
	Msg      string
	Removed  int
	Stats    cache.CacheStats `json:",omitempty"`
	Nodes    []cache.DumpNode `json:",omitempty"`
	Error    bool
	ErrorMsg string
}
