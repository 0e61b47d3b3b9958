/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package core

import (
	"sort"
	"testing"
)

// TestCanonical tests canonicalization to lowercase fqdn form
func TestCanonical(t *testing.T) {
	cases := map[string]string{
		"WWW.Example.COM": "www.example.com.",
		"example.com.":    "example.com.",
		".":               ".",
		" example.com ":   "example.com.",
	}
	for in, want := range cases {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestRevKey tests the reverse-label index key construction
func TestRevKey(t *testing.T) {
	if got := RevKey("."); got != "" {
		t.Errorf("RevKey(root) = %q, want empty", got)
	}
	want := "com" + LabelSep + "example" + LabelSep + "www"
	if got := RevKey("www.Example.Com."); got != want {
		t.Errorf("RevKey = %q, want %q", got, want)
	}
}

// TestRevKeyContiguity tests that the descendants of any apex form a
// contiguous range in reverse-key sort order
func TestRevKeyContiguity(t *testing.T) {
	names := []string{
		"example.com.",
		"a.example.com.",
		"b.a.example.com.",
		"z.example.com.",
		"example.net.",
		"examplez.com.",
		"com.",
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = RevKey(n)
	}
	sort.Strings(keys)

	apex := RevKey("example.com.")
	first, last := -1, -1
	for i, k := range keys {
		if k == apex || RevKeyBelow(k, apex) {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		t.Fatal("no keys matched the apex at all")
	}
	for i := first; i <= last; i++ {
		k := keys[i]
		if k != apex && !RevKeyBelow(k, apex) {
			t.Errorf("key %q inside the [%d,%d] range does not belong to the subtree", k, first, last)
		}
	}
	// examplez.com. must not leak into the example.com. range
	if RevKeyBelow(RevKey("examplez.com."), apex) {
		t.Error("examplez.com. wrongly classified as below example.com.")
	}
}

// TestIsBelow tests the subtree containment predicate
func TestIsBelow(t *testing.T) {
	if !IsBelow("a.b.example.com.", "example.com.") {
		t.Error("a.b.example.com. should be below example.com.")
	}
	if !IsBelow("example.com.", "example.com.") {
		t.Error("a name is below itself")
	}
	if IsBelow("example.com.", "a.example.com.") {
		t.Error("ancestor must not be below descendant")
	}
	if !IsBelow("anything.test.", ".") {
		t.Error("everything is below the root")
	}
}

// TestParentName tests stripping the leftmost label
func TestParentName(t *testing.T) {
	cases := map[string]string{
		"a.b.example.com.": "b.example.com.",
		"example.com.":     "com.",
		"com.":             ".",
		".":                ".",
	}
	for in, want := range cases {
		if got := ParentName(in); got != want {
			t.Errorf("ParentName(%q) = %q, want %q", in, got, want)
		}
	}
}
