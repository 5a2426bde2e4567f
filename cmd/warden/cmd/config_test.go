package cmd

import (
	"reflect"
	"testing"

	"github.com/brianly1003/warden/internal/config"
)

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()
	cfg.Rcon.Password = "secret"

	tests := []struct {
		key     string
		want    interface{}
		wantErr bool
	}{
		{key: "server.backend", want: "rcon"},
		{key: "rcon.password", want: "secret"},
		{key: "rcon.timeout_ms", want: 2000},
		{key: "watchdog.enabled", want: true},
		{key: "logfile.session_marker", want: "InitGame:"},
		{key: "server", wantErr: true},
		{key: "server.port", wantErr: true},
		{key: "rcon.password.length", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := getConfigValue(cfg, tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("getConfigValue(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getConfigValue(%q) = %#v, want %#v", tt.key, got, tt.want)
			}
		})
	}
}

func TestSetNestedValue(t *testing.T) {
	data := map[string]interface{}{
		"rcon": map[string]interface{}{"address": "127.0.0.1:27960"},
	}

	if err := setNestedValue(data, "rcon.timeout_ms", "3000"); err != nil {
		t.Fatalf("setNestedValue() error = %v", err)
	}
	if err := setNestedValue(data, "watchdog.enabled", "false"); err != nil {
		t.Fatalf("setNestedValue() error = %v", err)
	}

	rconSection := data["rcon"].(map[string]interface{})
	if rconSection["timeout_ms"] != 3000 {
		t.Errorf("timeout_ms = %#v, want 3000", rconSection["timeout_ms"])
	}
	if rconSection["address"] != "127.0.0.1:27960" {
		t.Error("existing key was lost")
	}
	if data["watchdog"].(map[string]interface{})["enabled"] != false {
		t.Errorf("watchdog.enabled = %#v", data["watchdog"])
	}

	if err := setNestedValue(data, "rcon.address.host", "x"); err == nil {
		t.Error("setting below a scalar should fail")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"true", true},
		{"false", false},
		{"1", 1},
		{"250", 250},
		{"say, tell", []string{"say", "tell"}},
		{"ioq3ded", "ioq3ded"},
		{"T", "T"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestRconEndpoint_FlagOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Rcon.Password = "fromconfig"

	defer func() { rconAddress, rconPassword = "", "" }()

	ep := rconEndpoint(cfg)
	if ep.Address != cfg.Rcon.Address || ep.Password != "fromconfig" {
		t.Errorf("rconEndpoint() = %+v", ep)
	}

	rconAddress, rconPassword = "10.0.0.5:27961", "fromflag"
	ep = rconEndpoint(cfg)
	if ep.Address != "10.0.0.5:27961" || ep.Password != "fromflag" {
		t.Errorf("rconEndpoint() with flags = %+v", ep)
	}
}
