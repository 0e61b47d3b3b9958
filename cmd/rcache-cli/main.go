/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package main

import (
	"github.com/ulfpersson/rcache/cmd/rcache-cli/cmd"
)

func main() {
	cmd.Execute()
}
