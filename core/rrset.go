/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package core

import (
	"github.com/miekg/dns"
)

type RRset struct {
	Name   string
	Class  uint16
	RRtype uint16
	RRs    []dns.RR
	RRSIGs []dns.RR
}

// MinTTL returns the smallest TTL among the records of the RRset.
func (rrset *RRset) MinTTL() uint32 {
	if rrset == nil || len(rrset.RRs) == 0 {
		return 0
	}
	min := rrset.RRs[0].Header().Ttl
	for _, rr := range rrset.RRs[1:] {
		if rr.Header().Ttl < min {
			min = rr.Header().Ttl
		}
	}
	return min
}

// Copy returns a shallow copy of the RRset with its own record slices.
// Records themselves are never mutated once cached, so sharing them is safe.
func (rrset *RRset) Copy() *RRset {
	if rrset == nil {
		return nil
	}
	dup := RRset{
		Name:   rrset.Name,
		Class:  rrset.Class,
		RRtype: rrset.RRtype,
		RRs:    make([]dns.RR, len(rrset.RRs)),
		RRSIGs: make([]dns.RR, len(rrset.RRSIGs)),
	}
	copy(dup.RRs, rrset.RRs)
	copy(dup.RRSIGs, rrset.RRSIGs)
	return &dup
}

// CacheTrust ranks how much we believe a cached answer. New data may only
// displace live cached data of strictly higher trust when it outranks it.
type CacheTrust uint8

const (
	TrustNone CacheTrust = iota
	TrustAdditional
	TrustGlue
	TrustAnswer
	TrustAuthAuthority
	TrustAuthAnswer
	TrustUltimate
)

var CacheTrustToString = map[CacheTrust]string{
	TrustNone:          "none",
	TrustAdditional:    "additional",
	TrustGlue:          "glue",
	TrustAnswer:        "answer",
	TrustAuthAuthority: "auth-authority",
	TrustAuthAnswer:    "auth-answer",
	TrustUltimate:      "ultimate",
}

func (t CacheTrust) String() string {
	if s, ok := CacheTrustToString[t]; ok {
		return s
	}
	return "unknown"
}
