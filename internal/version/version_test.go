package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestString_Ldflags(t *testing.T) {
	Version, Commit, Date = "1.2.0", "abc123", "2026-01-02"
	t.Cleanup(func() { Version, Commit, Date = "dev", "unknown", "unknown" })

	if got := String(); got != "suntan 1.2.0 (commit abc123, built 2026-01-02)" {
		t.Errorf("got %q", got)
	}
}

func TestString_Default(t *testing.T) {
	if got := String(); !strings.HasPrefix(got, "suntan ") {
		t.Errorf("got %q", got)
	}
}

func TestFromBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
		},
	}

	tests := []struct {
		name                string
		v, c, d             string
		wantV, wantC, wantD string
	}{
		{"fills unset", "dev", "unknown", "unknown", "v0.3.1", "deadbeef", "2026-03-04T05:06:07Z"},
		{"ldflags win", "1.0.0", "abc", "2026-01-01", "1.0.0", "abc", "2026-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c, d := fromBuildInfo(info, tt.v, tt.c, tt.d)
			if v != tt.wantV || c != tt.wantC || d != tt.wantD {
				t.Errorf("got %s %s %s", v, c, d)
			}
		})
	}

	devel := &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}
	if v, _, _ := fromBuildInfo(devel, "dev", "unknown", "unknown"); v != "dev" {
		t.Errorf("devel build version = %q", v)
	}
}
