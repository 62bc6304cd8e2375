package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vkeyboard/internal/keys"
	"vkeyboard/internal/policy"
)

const exampleJSON = `{
	"pid": 1234,
	"keypress_delay": 77,
	"keys": [
		{"key": "a", "allowed_modifiers": ["COMMAND", "SHIFT", "OPTION", "CONTROL"]},
		{"key": "b", "allowed_modifiers": ["CONTROL"]},
		{"key": "ENTER", "allowed_modifiers": []}
	]
}`

const exampleYAML = `
pid: 1234
keypress_delay: 77
keys:
  - key: a
    allowed_modifiers: [COMMAND, SHIFT, OPTION, CONTROL]
  - key: b
    allowed_modifiers: [CONTROL]
  - key: ENTER
    allowed_modifiers: []
server:
  listen: 0.0.0.0:9000
  api_token: secret
`

func mustCode(t *testing.T, name string) keys.Code {
	t.Helper()
	code, ok := keys.ResolveKeyCode(name)
	if !ok {
		t.Fatalf("key %q does not resolve", name)
	}
	return code
}

func checkExamplePolicy(t *testing.T, p *policy.Policy) {
	t.Helper()

	for _, name := range []string{"a", "b", "enter"} {
		if err := p.Authorize(mustCode(t, name), keys.NoModifier); err != nil {
			t.Errorf("key %q should be allowed: %v", name, err)
		}
	}
	if err := p.Authorize(mustCode(t, "d"), keys.NoModifier); !errors.Is(err, policy.ErrKeyNotAllowed) {
		t.Errorf("key d should not be allowed, got %v", err)
	}
	if err := p.Authorize(mustCode(t, "a"), keys.Command); err != nil {
		t.Errorf("a+command should be allowed: %v", err)
	}
	if err := p.Authorize(mustCode(t, "b"), keys.Shift); !errors.Is(err, policy.ErrModifierNotAllowed) {
		t.Errorf("b+shift should be rejected, got %v", err)
	}
	if err := p.Authorize(mustCode(t, "enter"), keys.Shift); !errors.Is(err, policy.ErrModifierNotAllowed) {
		t.Errorf("enter+shift should be rejected, got %v", err)
	}
}

func TestParseJSON(t *testing.T) {
	cfg, err := Parse([]byte(exampleJSON), JSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.PID != 1234 {
		t.Errorf("PID = %d, want 1234", cfg.PID)
	}
	if cfg.Delay() != 77*time.Millisecond {
		t.Errorf("Delay = %v, want 77ms", cfg.Delay())
	}
	if cfg.Server.Listen != DefaultListen {
		t.Errorf("Listen = %q, want default", cfg.Server.Listen)
	}
	if cfg.ReadTimeout() != 5*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout())
	}
	checkExamplePolicy(t, cfg.Policy())
}

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(exampleYAML), YAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.PID != 1234 || cfg.Delay() != 77*time.Millisecond {
		t.Errorf("got pid %d delay %v", cfg.PID, cfg.Delay())
	}
	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Server.Listen)
	}
	if cfg.Server.APIToken != "secret" {
		t.Errorf("APIToken = %q", cfg.Server.APIToken)
	}
	checkExamplePolicy(t, cfg.Policy())
}

func TestParseJSONWithComments(t *testing.T) {
	data := `{
		// target application
		"pid": 42,
		"keypress_delay": 10, /* ms */
		"keys": [
			{"key": "space"},
		],
	}`

	cfg, err := Parse([]byte(data), JSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// no allowed_modifiers: any modifier is accepted
	if err := cfg.Policy().Authorize(0x31, keys.Command); err != nil {
		t.Errorf("space+command should be allowed: %v", err)
	}
}

func TestParseIdempotent(t *testing.T) {
	first, err := Parse([]byte(exampleJSON), JSON)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Parse([]byte(exampleJSON), JSON)
	if err != nil {
		t.Fatal(err)
	}

	mods := []keys.Modifier{keys.NoModifier, keys.Shift, keys.Control, keys.Alternate, keys.Command}
	for code := keys.Code(0); code < 0x80; code++ {
		for _, m := range mods {
			e1 := first.Policy().Authorize(code, m)
			e2 := second.Policy().Authorize(code, m)
			if (e1 == nil) != (e2 == nil) {
				t.Fatalf("policies differ for 0x%02X/%v: %v vs %v", code, m, e1, e2)
			}
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unsupported key",
			data:    `{"pid": 1, "keypress_delay": 0, "keys": [{"key": "f13"}]}`,
			wantErr: ErrUnsupportedKey,
			wantMsg: `unsupported key: "f13"`,
		},
		{
			name:    "unsupported modifier",
			data:    `{"pid": 1, "keypress_delay": 0, "keys": [{"key": "a", "allowed_modifiers": ["hyper"]}]}`,
			wantErr: ErrUnsupportedModifier,
			wantMsg: `unsupported modifier: "hyper" (key "a")`,
		},
		{
			name:    "missing pid",
			data:    `{"keypress_delay": 10, "keys": []}`,
			wantErr: ErrInvalidPID,
		},
		{
			name:    "pid beyond pid_t",
			data:    `{"pid": 4294968530, "keypress_delay": 0, "keys": []}`,
			wantErr: ErrInvalidPID,
			wantMsg: "invalid pid: 4294968530",
		},
		{
			name:    "delay overflows duration",
			data:    `{"pid": 1, "keypress_delay": 9223372036854775, "keys": []}`,
			wantErr: ErrInvalidDelay,
		},
		{
			name:    "negative delay",
			data:    `{"pid": 1, "keypress_delay": -5, "keys": []}`,
			wantErr: ErrInvalidDelay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data), JSON)
			if cfg != nil {
				t.Error("expected no config on error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseBounds(t *testing.T) {
	data := fmt.Sprintf(`{"pid": %d, "keypress_delay": %d, "keys": []}`, MaxPID, MaxKeypressDelay)
	cfg, err := Parse([]byte(data), JSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.PID != MaxPID {
		t.Errorf("PID = %d", cfg.PID)
	}
	if cfg.Delay() < 0 {
		t.Errorf("Delay = %v, want non-negative", cfg.Delay())
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte(`{"pid": 1, "keys": [], "delay": 3}`), JSON); err == nil {
		t.Error("expected error for unknown JSON field")
	}
	if _, err := Parse([]byte("pid: 1\nkeys: []\ndelay: 3\n"), YAML); err == nil {
		t.Error("expected error for unknown YAML field")
	}
	if _, err := Parse([]byte(`{"pid": `), JSON); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"config.json", JSON},
		{"config.jsonc", JSON},
		{"config.yaml", YAML},
		{"/etc/vkeyboard/CONFIG.YML", YAML},
		{"config", JSON},
	}
	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Errorf("FormatForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	if err := os.WriteFile(path, []byte(exampleYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	checkExamplePolicy(t, cfg.Policy())

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
