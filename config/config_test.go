package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error: %v", err)
	}
	if cfg.Keys.SigOffset != 3 || cfg.Keys.MultisigOffset != 10 || cfg.Keys.ForgingOffset != 2 {
		t.Errorf("unexpected default offsets: %+v", cfg.Keys)
	}
	if cfg.RPC.Module != "ldpos_chain" {
		t.Errorf("RPC.Module = %q, want ldpos_chain", cfg.RPC.Module)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"max offset", func(c *Config) { c.Keys.SigOffset = MaxKeyIndexOffset - 1 }, false},
		{"sig offset at half", func(c *Config) { c.Keys.SigOffset = MaxKeyIndexOffset }, true},
		{"multisig offset too big", func(c *Config) { c.Keys.MultisigOffset = 40 }, true},
		{"forging offset too big", func(c *Config) { c.Keys.ForgingOffset = 16 }, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, true},
		{"bolt backend", func(c *Config) { c.Store.Backend = StoreBolt }, false},
		{"bad rpc url", func(c *Config) { c.RPC.URL = "ftp://node" }, true},
		{"no rpc url", func(c *Config) { c.RPC.URL = "" }, false},
		{"negative timeout", func(c *Config) { c.RPC.Timeout = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
		})
	}
	if !errors.Is(Validate(nil), ErrInvalidConfig) {
		t.Error("Validate(nil) should fail")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ldpos.conf")
	content := `# comment
network.symbol = clsk
rpc.url = "http://node:7001/rpc"
rpc.timeout = 3s
keys.sig_offset = 5
store.backend = BOLT
log.json = yes
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	if cfg.NetworkSymbol != "clsk" {
		t.Errorf("NetworkSymbol = %q, want clsk", cfg.NetworkSymbol)
	}
	if cfg.RPC.URL != "http://node:7001/rpc" {
		t.Errorf("RPC.URL = %q", cfg.RPC.URL)
	}
	if cfg.RPC.Timeout != 3*time.Second {
		t.Errorf("RPC.Timeout = %v, want 3s", cfg.RPC.Timeout)
	}
	if cfg.Keys.SigOffset != 5 || cfg.Keys.MultisigOffset != DefaultMultisigOffset {
		t.Errorf("unexpected offsets: %+v", cfg.Keys)
	}
	if cfg.Store.Backend != StoreBolt {
		t.Errorf("Store.Backend = %q, want bolt", cfg.Store.Backend)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON should be true")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "none.conf"))
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("missing file should give no values, got %v", values)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	os.WriteFile(path, []byte("just words\n"), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should reject a line without '='")
	}
}

func TestApplyFileConfig_BadValue(t *testing.T) {
	cfg := Default()
	if err := ApplyFileConfig(cfg, map[string]string{"keys.forging_offset": "-1"}); err == nil {
		t.Error("negative offset should fail to parse")
	}
	if err := ApplyFileConfig(cfg, map[string]string{"rpc.timeout": "soon"}); err == nil {
		t.Error("bad duration should fail to parse")
	}
}

func TestParseFlags_StopsAtCommand(t *testing.T) {
	f, err := ParseFlags([]string{"--rpc", "http://x:1/rpc", "--log-json", "send", "--fee", "1"})
	if err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	if f.RPCURL != "http://x:1/rpc" {
		t.Errorf("RPCURL = %q", f.RPCURL)
	}
	if !f.SetLogJSON || !f.LogJSON {
		t.Error("log-json should be set")
	}
	if len(f.Args) != 3 || f.Args[0] != "send" || f.Args[1] != "--fee" {
		t.Errorf("Args = %v", f.Args)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "ldpos.conf")
	os.WriteFile(conf, []byte("network.symbol = clsk\nlog.level = warn\n"), 0644)

	cfg, _, err := Load([]string{"--datadir", dir, "--log-level", "debug", "address"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.NetworkSymbol != "clsk" {
		t.Errorf("file value not applied: %q", cfg.NetworkSymbol)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("flag should override file: %q", cfg.Log.Level)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.StorePath() != filepath.Join(dir, "keyindex") {
		t.Errorf("StorePath() = %q", cfg.StorePath())
	}
}

func TestLoad_InvalidOffset(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "ldpos.conf"), []byte("keys.multisig_offset = 16\n"), 0644)
	if _, _, err := Load([]string{"--datadir", dir}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() = %v, want ErrInvalidConfig", err)
	}
}

func TestEnsureDataDirs(t *testing.T) {
	cfg := Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	if err := EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs() error: %v", err)
	}
	values, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	written := Default()
	if err := ApplyFileConfig(written, values); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if err := Validate(written); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
	if _, err := os.Stat(cfg.KeystoreDir()); err != nil {
		t.Errorf("keystore dir not created: %v", err)
	}
}
