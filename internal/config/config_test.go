package config

import "testing"

func validConfig() Config {
	c := Config{}
	c.HTTP.Port = 8080
	c.Database.Addrs = []string{"localhost:6379"}
	c.Embedding.Model = "text-embedding-3-small"
	c.ApplyDefaults()
	return c
}

func TestApplyDefaults(t *testing.T) {
	c := validConfig()

	if c.Embedding.Dimensions != 384 {
		t.Errorf("embedding dimensions default = %d", c.Embedding.Dimensions)
	}
	if c.Retrieval.FetchK != 20 || c.Retrieval.SubqueryTimeoutMs != 500 {
		t.Errorf("retrieval defaults = %+v", c.Retrieval)
	}
	if c.Resolve.Candidates != 5 || c.Resolve.CacheTTLSec != 86400 {
		t.Errorf("resolve defaults = %+v", c.Resolve)
	}
	if c.Rank.PoolSize != 12 || c.Rank.CacheTTLSec != 3600 {
		t.Errorf("rank defaults = %+v", c.Rank)
	}
	if c.Judge.Model != "gpt-4o-mini" {
		t.Errorf("judge model default = %q", c.Judge.Model)
	}
	if c.Storage.KeyPrefix != "skumatch:" {
		t.Errorf("key prefix default = %q", c.Storage.KeyPrefix)
	}
}

func TestValidate(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := validConfig()
	bad.HTTP.Port = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for port 0")
	}

	bad = validConfig()
	bad.Database.Addrs = nil
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing database addrs")
	}

	bad = validConfig()
	bad.Rank.MinScore = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error for min_score out of range")
	}

	bad = validConfig()
	bad.Rank.DefaultCount = 100
	bad.Rank.MaxCount = 50
	if err := bad.Validate(); err == nil {
		t.Error("expected error for default_count > max_count")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SKUMATCH_TEST_ADDR", "redis:6379")

	in := []byte("addr: ${SKUMATCH_TEST_ADDR}\nttl: ${SKUMATCH_TEST_MISSING:-3600}\n")
	out := string(expandEnvVars(in))

	want := "addr: redis:6379\nttl: 3600\n"
	if out != want {
		t.Errorf("expandEnvVars = %q, want %q", out, want)
	}
}
