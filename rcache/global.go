/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package rcache

type GlobalStuff struct {
	AppName    string
	AppVersion string
	Verbose    bool
	Debug      bool
	Api        *Api
	BaseUri    string
}

var Globals = GlobalStuff{
	AppName: "rcache",
}
