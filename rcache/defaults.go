/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package rcache

const (
	DefaultCfgFile    = "/etc/rcache/rcached.yaml"
	DefaultCliCfgFile = "/etc/rcache/rcache-cli.yaml"
)
