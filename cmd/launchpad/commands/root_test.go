package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/launchpad/internal/config"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "launchpad", cmd.Use)
	assert.Equal(t, "Deploy applications to Coolify with Cloudflare DNS", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"plan",
		"apply",
		"status",
		"logs",
		"destroy",
		"secrets",
		"provision",
		"resume",
		"jobs",
		"serve",
		"version",
		"completion",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestRoot_PersistentFlags(t *testing.T) {
	cmd := Root()

	for _, name := range persistentFlags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, config.DefaultStateDir, cmd.PersistentFlags().Lookup("state-dir").DefValue)
	assert.Equal(t, config.StoreFile, cmd.PersistentFlags().Lookup("store").DefValue)
}

func TestRoot_FlagsOverrideSettings(t *testing.T) {
	cmd := Root()
	require.NoError(t, cmd.PersistentFlags().Set("store", "sqlite"))
	require.NoError(t, cmd.PersistentFlags().Set("state-dir", "/var/lib/launchpad"))
	t.Cleanup(func() {
		_ = cmd.PersistentFlags().Set("store", config.StoreFile)
		_ = cmd.PersistentFlags().Set("state-dir", config.DefaultStateDir)
	})

	settings, err := loadSettings()

	require.NoError(t, err)
	assert.Equal(t, config.StoreSQLite, settings.Store)
	assert.Equal(t, "/var/lib/launchpad/launchpad.db", settings.DatabasePath())
}

func TestRoot_RejectsUnknownStore(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"jobs", "--store", "etcd"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
	_ = root.PersistentFlags().Set("store", config.StoreFile)
}
