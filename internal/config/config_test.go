package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr())
	require.EqualValues(t, 1, cfg.BidCost)
	require.EqualValues(t, 10, cfg.StartingBalance)
	require.Equal(t, 2*time.Second, cfg.LockTimeout)
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, 500*time.Millisecond, cfg.NotifierGapTimeout)
	require.Equal(t, 2*time.Second, cfg.NotifierCatchUp)
	require.EqualValues(t, 3, cfg.RetryMaxTries)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BID_COST", "5")
	t.Setenv("LOCK_TIMEOUT", "150ms")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Addr())
	require.EqualValues(t, 5, cfg.BidCost)
	require.Equal(t, 150*time.Millisecond, cfg.LockTimeout)
	require.Equal(t, DriverSQLite, cfg.StoreDriver)
	require.Equal(t, "/tmp/ledger.db", cfg.SQLitePath)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero_cost", key: "BID_COST", value: "0"},
		{name: "negative_balance", key: "STARTING_BALANCE", value: "-1"},
		{name: "bad_duration", key: "LOCK_TIMEOUT", value: "soon"},
		{name: "unknown_driver", key: "STORE_DRIVER", value: "postgres"},
		{name: "zero_buffer", key: "SUBSCRIBER_BUFFER", value: "0"},
		{name: "negative_catch_up", key: "NOTIFIER_CATCH_UP_INTERVAL", value: "-1s"},
		{name: "zero_tries", key: "BID_RETRY_MAX_TRIES", value: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
