/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package core

import (
	"strings"

	"github.com/miekg/dns"
)

// Owner names are kept in canonical form (lowercase, fully qualified).
// For index ordering we use a reversed-label key, so that all names below
// an apex form one contiguous key range: "www.example.com." becomes
// "com\x1fexample\x1fwww". The separator sorts below every byte that can
// occur in a presentation-format label.
const LabelSep = "\x1f"

// Canonical returns the canonical (lowercase, fqdn) form of name.
func Canonical(name string) string {
	return dns.CanonicalName(strings.TrimSpace(name))
}

// RevKey computes the reversed-label index key for a canonical name.
// The root name maps to the empty key.
func RevKey(name string) string {
	labels := dns.SplitDomainName(Canonical(name))
	if len(labels) == 0 {
		return ""
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, LabelSep)
}

// RevKeyBelow reports whether the index key k belongs to a proper
// descendant of the name whose index key is apex. The root apex (empty
// key) contains every non-root name.
func RevKeyBelow(k, apex string) bool {
	if apex == "" {
		return k != ""
	}
	return strings.HasPrefix(k, apex+LabelSep)
}

// IsBelow reports whether name equals apex or lies in the subtree below it.
func IsBelow(name, apex string) bool {
	return dns.IsSubDomain(Canonical(apex), Canonical(name))
}

// ParentName strips the leftmost label. The parent of the root is the root.
func ParentName(name string) string {
	name = Canonical(name)
	if name == "." {
		return "."
	}
	labels := dns.SplitDomainName(name)
	if len(labels) <= 1 {
		return "."
	}
	return dns.Fqdn(strings.Join(labels[1:], "."))
}

// ValidName reports whether name is usable as an owner name.
func ValidName(name string) bool {
	name = Canonical(name)
	if name == "." {
		return true
	}
	_, ok := dns.IsDomainName(strings.TrimSuffix(name, "."))
	return ok
}
