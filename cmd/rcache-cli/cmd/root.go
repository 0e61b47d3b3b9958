/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ulfpersson/rcache/rcache"
)

var cfgFile string

var api *rcache.Api

var rootCmd = &cobra.Command{
	Use:   "rcache-cli",
	Short: "rcache-cli is a tool used to interact with the rcached record cache via API",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig, initApi)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", rcache.DefaultCliCfgFile))
	rootCmd.PersistentFlags().BoolVarP(&rcache.Globals.Debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&rcache.Globals.Verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(rcache.DefaultCliCfgFile)
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if rcache.Globals.Verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		log.Fatalf("Could not load config %s: Error: %v", viper.ConfigFileUsed(), err)
	}

	rcache.SetupCliLogging()
}

func initApi() {
	baseurl := viper.GetString("cli.baseurl")
	apikey := viper.GetString("cli.apikey")
	if baseurl == "" || apikey == "" {
		log.Fatalf("Error: cli.baseurl and cli.apikey must both be set in %s", viper.ConfigFileUsed())
	}

	api = rcache.NewClient("rcache-cli", baseurl, apikey, "X-API-Key",
		rcache.Globals.Verbose, rcache.Globals.Debug)
	rcache.Globals.Api = api
}
