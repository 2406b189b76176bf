package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()

	assert.Equal(t, "3001", viper.GetString("server.http.port"))
	assert.Equal(t, 20, viper.GetInt("orders.confirmed_limit"))
	assert.True(t, viper.GetBool("orders.enforce_total"))
	assert.Equal(t, 0, viper.GetInt("verify.max_attempts"))
	assert.Equal(t, 15*time.Minute, viper.GetDuration("verify.attempts_ttl"))
	assert.Empty(t, viper.GetString("store.uri"))
}

func TestBindEnv_LegacyNames(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MONGODB_URI", "mongodb://legacy:27017")
	t.Setenv("PORT", "8080")
	t.Setenv("SENDGRID_API_KEY", "SG.legacy")

	SetDefaults()
	BindEnv()

	assert.Equal(t, "mongodb://legacy:27017", viper.GetString("store.uri"))
	assert.Equal(t, "8080", viper.GetString("server.http.port"))
	assert.Equal(t, "SG.legacy", viper.GetString("notifier.sendgrid.api_key"))
}

func TestBindEnv_CanonicalNameWins(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("STORE_URI", "postgres://cafe@db/cafe")
	t.Setenv("MONGODB_URI", "mongodb://legacy:27017")
	t.Setenv("ORDERS_CONFIRMED_LIMIT", "5")

	SetDefaults()
	BindEnv()

	assert.Equal(t, "postgres://cafe@db/cafe", viper.GetString("store.uri"))
	assert.Equal(t, 5, viper.GetInt("orders.confirmed_limit"))
}
