package config

import "testing"

func TestEngineConfigLoad(t *testing.T) {
	t.Setenv("ENGINE_DB_PATH", "/tmp/clmm-test.db")
	t.Setenv("ENGINE_PERSIST_INTERVAL", "3")
	t.Setenv("ENGINE_FAUCET_ENABLED", "true")
	t.Setenv("ENGINE_ADMIN_TOKEN", "secret")

	var c EngineConfig
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	if c.DBPath != "/tmp/clmm-test.db" || c.PersistInterval != 3 || !c.FaucetEnabled || c.AdminToken != "secret" {
		t.Errorf("loaded config = %+v", c)
	}
	if !c.PersistenceEnabled || c.RateLimit != 10 || c.RateBurst != 20 {
		t.Errorf("defaults = %+v", c)
	}
}

func TestEngineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		conf    EngineConfig
		wantErr bool
	}{
		{"ok", EngineConfig{DBPath: "a.db", PersistenceEnabled: true, PersistInterval: 1, EventBuffer: 1, RateLimit: 1, RateBurst: 1}, false},
		{"persistence off ignores path", EngineConfig{EventBuffer: 1, RateLimit: 1, RateBurst: 2}, false},
		{"zero interval", EngineConfig{DBPath: "a.db", PersistenceEnabled: true, EventBuffer: 1, RateLimit: 1, RateBurst: 1}, true},
		{"burst below rate", EngineConfig{EventBuffer: 1, RateLimit: 5, RateBurst: 1}, true},
		{"no event buffer", EngineConfig{RateLimit: 1, RateBurst: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.conf.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeneralConfigEnv(t *testing.T) {
	t.Setenv("ENV", "PROD")
	var gc GeneralConfig
	if err := gc.Load(); err != nil {
		t.Fatal(err)
	}
	if gc.Env != ProdEnv {
		t.Errorf("env = %q", gc.Env)
	}
	t.Setenv("ENV", "qa")
	if err := gc.Load(); err == nil {
		t.Errorf("qa env accepted")
	}
}
