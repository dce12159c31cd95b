package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaignlens/campaignlens/internal/config"
	"github.com/campaignlens/campaignlens/internal/store"
)

func TestOpenStore_None(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "none"}}

	st, err := openStore(context.Background())
	require.NoError(t, err)
	assert.IsType(t, store.Nop{}, st)
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "events.db"),
	}}

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Migrate(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "etcd"}}

	_, err := openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestServeCmd_RunE_FailsOnValidation(t *testing.T) {
	cfg = &config.Config{}
	serveCmd.SetContext(context.Background())
	defer serveCmd.SetContext(context.TODO())

	err := serveCmd.RunE(serveCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}
