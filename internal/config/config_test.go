package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresStoreDSN(t *testing.T) {
	v := viper.New()
	v.Set("log.level", "debug")

	_, err := Load(v)
	require.ErrorContains(t, err, "store.dsn")
}

func TestLoadDecodesNestedFields(t *testing.T) {
	v := viper.New()
	v.Set("log.level", "debug")
	v.Set("store.dsn", "file:test.db")
	v.Set("presence.timeout_seconds", 5)
	v.Set("serve.address", "127.0.0.1:7878")

	c, err := Load(v)
	require.NoError(t, err)

	require.Equal(t, "debug", c.Log.Level)
	require.Equal(t, "file:test.db", c.Store.DSN)
	require.Equal(t, 5*time.Second, c.PresenceTimeout())
	require.Equal(t, "127.0.0.1:7878", c.Serve.Address)
}

func TestPresenceTimeoutDefaultsWhenUnset(t *testing.T) {
	v := viper.New()
	v.Set("store.dsn", "file:test.db")

	c, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, c.PresenceTimeout())
}
