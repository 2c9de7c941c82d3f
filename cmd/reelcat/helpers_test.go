package main

import "testing"

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024 * 1024, "5.0 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "file"); got != "1 file" {
		t.Errorf("pluralize(1) = %q", got)
	}
	if got := pluralize(3, "error"); got != "3 errors" {
		t.Errorf("pluralize(3) = %q", got)
	}
	if got := pluralize(0, "file"); got != "0 files" {
		t.Errorf("pluralize(0) = %q", got)
	}
}

func TestFormatTags(t *testing.T) {
	if got := formatTags(nil); got != "-" {
		t.Errorf("formatTags(nil) = %q", got)
	}
	if got := formatTags([]string{"a", "b"}); got != "a, b" {
		t.Errorf("formatTags = %q", got)
	}
}
