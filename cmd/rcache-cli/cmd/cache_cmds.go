/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/ulfpersson/rcache/rcache"
)

var dumpFormat string

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the rcached daemon is alive",
	Run: func(cmd *cobra.Command, args []string) {
		pr, err := api.SendPing(0)
		if err != nil {
			log.Fatalf("Error from ping: %v", err)
		}
		fmt.Printf("%s (pings: %d, pongs: %d, daemon up since %s)\n",
			pr.Msg, pr.Pings, pr.Pongs, pr.BootTime.Format("2006-01-02 15:04:05"))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record cache statistics",
	Run: func(cmd *cobra.Command, args []string) {
		cr, err := api.SendCache(rcache.CachePost{Command: "status"})
		if err != nil {
			log.Fatalf("Error from cache status: %v", err)
		}
		s := cr.Stats
		fmt.Printf("Cache status for %s (generation %d):\n", cr.AppName, s.Generation)
		fmt.Printf("  hits: %d  misses: %d  evictions: %d  expirations: %d\n",
			s.Hits, s.Misses, s.Evictions, s.Expirations)
		fmt.Printf("  resident: %d nodes, %d rrsets, %d records (%d zombies)\n",
			s.Nodes, s.RRsets, s.Records, s.Zombies)
		if !s.LastClean.IsZero() {
			fmt.Printf("  last cleaning pass: %s\n", s.LastClean.Format("2006-01-02 15:04:05"))
		}
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Flush the entire record cache",
	Run: func(cmd *cobra.Command, args []string) {
		cr, err := api.SendCache(rcache.CachePost{Command: "flush"})
		if err != nil {
			log.Fatalf("Error from flush: %v", err)
		}
		fmt.Println(cr.Msg)
	},
}

var flushNameCmd = &cobra.Command{
	Use:   "flushname <name>",
	Short: "Flush all cached data at exactly the given name",
	Args:  cobra.ExactArgs(1),
	Run:   newFlushRunner("flushname"),
}

var flushTreeCmd = &cobra.Command{
	Use:   "flushtree <name>",
	Short: "Flush all cached data at and below the given name",
	Args:  cobra.ExactArgs(1),
	Run:   newFlushRunner("flushtree"),
}

func newFlushRunner(command string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		name := dns.Fqdn(args[0])
		trimmed := strings.TrimSuffix(name, ".")
		if trimmed == "" {
			log.Fatalf("Refusing to flush the root zone; use \"flush\" for the whole cache")
		}
		if _, ok := dns.IsDomainName(trimmed); !ok {
			log.Fatalf("Not a valid domain name: %q", args[0])
		}
		cr, err := api.SendCache(rcache.CachePost{Command: command, Name: name})
		if err != nil {
			log.Fatalf("Error from %s: %v", command, err)
		}
		fmt.Println(cr.Msg)
	}
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the live cache contents",
	Run: func(cmd *cobra.Command, args []string) {
		cr, err := api.SendCache(rcache.CachePost{Command: "dump"})
		if err != nil {
			log.Fatalf("Error from dump: %v", err)
		}
		out, err := rcache.FormatDump(cr.Nodes, dumpFormat)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Print(out)
		if rcache.Globals.Verbose {
			fmt.Printf("; %d live nodes, %d rrsets resident\n", len(cr.Nodes), cr.Stats.RRsets)
		}
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Tell the rcached daemon to stop",
	Run: func(cmd *cobra.Command, args []string) {
		cr, err := api.SendCommand("stop")
		if err != nil {
			log.Fatalf("Error from stop: %v", err)
		}
		fmt.Println(cr.Msg)
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "dump output format (text|yaml)")

	rootCmd.AddCommand(pingCmd, statusCmd, flushCmd, flushNameCmd, flushTreeCmd, dumpCmd, daemonStopCmd)
}
