package command

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestConfigPath(t *testing.T) {
	h := newHarness(t, "")
	if err := h.run("config", "path"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(h.out.String()); got != h.config {
		t.Errorf("path = %q, want %q", got, h.config)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	h := newHarness(t, "")
	if err := h.run("config", "set", "output.format", "json"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if h.out.String() != "Set output.format in "+h.config+".\n" {
		t.Errorf("output = %q", h.out.String())
	}

	// A fresh process picks up the new default format.
	fresh := newHarness(t, "")
	fresh.config = h.config
	if err := fresh.run("config", "show"); err != nil {
		t.Fatalf("show: %v", err)
	}
	var values map[string]any
	if err := json.Unmarshal(fresh.out.Bytes(), &values); err != nil {
		t.Fatalf("show is not JSON: %q", fresh.out.String())
	}
	if values["output.format"] != "json" {
		t.Errorf("output.format = %v", values["output.format"])
	}
	if values["api.url"] != fresh.server.apiURL() {
		t.Errorf("api.url = %v, want the flag override", values["api.url"])
	}
}

func TestConfigSet_Usage(t *testing.T) {
	h := newHarness(t, "")
	err := h.run("config", "set", "output.format")
	if err == nil {
		t.Fatal("expected a usage error")
	}
	if ExitCode(err) != ExitError {
		t.Errorf("ExitCode = %d", ExitCode(err))
	}
}

func TestConfigSet_RejectsInvalidValue(t *testing.T) {
	h := newHarness(t, "")
	if err := h.run("config", "set", "store.backend", "floppy"); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
	if _, err := os.Stat(h.config); !os.IsNotExist(err) {
		t.Error("config file written despite the invalid value")
	}
}

func TestConfig_BrokenFileCanBeRepaired(t *testing.T) {
	h := newHarness(t, testToken)
	if err := os.WriteFile(h.config, []byte("cache:\n  max_retries: -3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := h.run("tournament", "list")
	if err == nil || !strings.Contains(err.Error(), "config") {
		t.Fatalf("err = %v, want a config error", err)
	}

	if err := h.run("config", "set", "cache.max_retries", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	h.server.reply("GET", "/tournaments/", 200, sampleTournaments())
	if err := h.run("tournament", "list"); err != nil {
		t.Fatalf("list after repair: %v", err)
	}
}
