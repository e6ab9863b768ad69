package version

import (
	"runtime"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Service != "pixelgrid" {
		t.Errorf("Service = %q, want pixelgrid", info.Service)
	}
	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Errorf("build fields must not be empty: %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}
