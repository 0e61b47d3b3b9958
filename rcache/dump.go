/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package rcache

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ulfpersson/rcache/cache"
)

// FormatDump renders a cache dump for operators. Formats: "text" (default)
// and "yaml".
func FormatDump(nodes []cache.DumpNode, format string) (string, error) {
	switch format {
	case "", "text":
		var sb strings.Builder
		for _, dn := range nodes {
			fmt.Fprintf(&sb, "; %s\n", dn.Name)
			for _, dr := range dn.RRsets {
				if len(dr.Records) == 0 {
					fmt.Fprintf(&sb, ";; %s %s %d [%s, %s]\n",
						dr.Name, dr.RRtype, dr.Ttl, dr.Context, dr.Trust)
					continue
				}
				for _, rec := range dr.Records {
					fmt.Fprintf(&sb, "%s ; [%s, %s]\n", rec, dr.Context, dr.Trust)
				}
			}
		}
		return sb.String(), nil

	case "yaml":
		buf, err := yaml.Marshal(nodes)
		if err != nil {
			return "", fmt.Errorf("dump: yaml marshal: %v", err)
		}
		return string(buf), nil

	default:
		return "", fmt.Errorf("dump: unknown format %q (text|yaml)", format)
	}
}
