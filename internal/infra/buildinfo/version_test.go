package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestInjectedCommitWins(t *testing.T) {
	orig := Commit
	defer func() { Commit = orig }()

	Commit = "abc1234"
	if got := Get().Commit; got != "abc1234" {
		t.Errorf("Commit = %q, want injected value", got)
	}
}

func TestString(t *testing.T) {
	origVersion, origTime := Version, BuildTime
	defer func() { Version, BuildTime = origVersion, origTime }()

	Version = "v1.2.0"
	BuildTime = "2024-05-01T09:00:00Z"

	s := String()
	if !strings.HasPrefix(s, "v1.2.0 (") || !strings.HasSuffix(s, "built at 2024-05-01T09:00:00Z") {
		t.Errorf("String() = %q", s)
	}
}

func TestUserAgent(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.2.0"
	ua := UserAgent()
	if !strings.HasPrefix(ua, "mulligan-cli/v1.2.0 (") {
		t.Errorf("UserAgent() = %q", ua)
	}
}
