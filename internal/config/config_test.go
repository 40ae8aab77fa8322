package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "APP_PORT", "AWS_REGION", "MODEL_TABLE", "STORE_DRIVER",
		"ENTITLEMENT_CHECK", "CALL_TIMEOUT", "EVENTS_ENABLED", "NODE_SUBNET_IDS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "5001", cfg.Port)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "model_table", cfg.ModelTable)
	assert.Equal(t, "dynamo", cfg.StoreDriver)
	assert.True(t, cfg.EntitlementCheck)
	assert.True(t, cfg.EventsEnabled)
	assert.False(t, cfg.ProgressConsumer)
	assert.Equal(t, 15*time.Second, cfg.CallTimeout)
	assert.Nil(t, cfg.NodeSubnetIDs)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "DYNAMO")
	t.Setenv("ENTITLEMENT_CHECK", "false")
	t.Setenv("CALL_TIMEOUT", "30s")
	t.Setenv("NODE_SUBNET_IDS", "subnet-a, subnet-b,")

	cfg := Load()
	assert.Equal(t, "dynamo", cfg.StoreDriver)
	assert.False(t, cfg.EntitlementCheck)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, []string{"subnet-a", "subnet-b"}, cfg.NodeSubnetIDs)
}

func TestLoadAuthConfigDisabledByDefault(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "")
	t.Setenv("JWT_SECRET", "")

	cfg := LoadAuthConfig()
	assert.False(t, cfg.Enabled)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,b, "))
}
