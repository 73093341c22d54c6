package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_Metadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{Plan(), "plan", []string{"file", "json"}},
		{Apply(), "apply", []string{"file", "dry-run", "json", "persist-secrets"}},
		{Status(), "status", []string{"file", "json"}},
		{Logs(), "logs", []string{"file", "lines"}},
		{Destroy(), "destroy", []string{"file", "yes"}},
		{Secrets(), "secrets", []string{"file", "json", "reveal", "persist"}},
		{Provision(), "provision <domain>", []string{"app", "register", "years", "contact-file", "record", "credential", "image", "json"}},
		{Resume(), "resume <job-id>", []string{"image", "json", "force-unlock"}},
		{Jobs(), "jobs [job-id]", []string{"domain", "open", "json"}},
		{Serve(), "serve", []string{"addr"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			require.NotNil(t, tt.cmd)
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotNil(t, tt.cmd.RunE)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "flag %s", name)
			}
		})
	}
}

func TestFileFlagShorthand(t *testing.T) {
	for _, cmd := range []*cobra.Command{Plan(), Apply(), Status(), Logs(), Destroy(), Secrets()} {
		flag := cmd.Flags().Lookup("file")
		require.NotNil(t, flag)
		assert.Equal(t, "f", flag.Shorthand)
		assert.Equal(t, "launchpad.yaml", flag.DefValue)
	}
}

func TestApply_PersistSecretsDefaultsOn(t *testing.T) {
	flag := Apply().Flags().Lookup("persist-secrets")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func TestDestroy_LongDescription(t *testing.T) {
	cmd := Destroy()
	assert.Contains(t, cmd.Long, "--yes")
	assert.Contains(t, cmd.Long, "WARNING")
}

func TestProvision_RequiresDomain(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"provision"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestCompletion(t *testing.T) {
	cmd := Completion()

	require.NotNil(t, cmd)
	assert.Equal(t, "completion [bash|zsh|fish|powershell]", cmd.Use)
	assert.Equal(t, []string{"bash", "zsh", "fish", "powershell"}, cmd.ValidArgs)
	assert.True(t, cmd.DisableFlagsInUseLine)
}

func TestCompletion_BashOutput(t *testing.T) {
	root := Root()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"completion", "bash"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "launchpad")
}

func TestCompletion_InvalidShell(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"completion", "tcsh"})
	root.SetErr(&bytes.Buffer{})

	require.Error(t, root.Execute())
}
