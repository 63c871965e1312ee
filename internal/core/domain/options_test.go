package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupOptions_NormalizeDefaults(t *testing.T) {
	o := BackupOptions{BackupDir: "/backup/"}
	o.Normalize()

	assert.Equal(t, "/backup", o.BackupDir)
	assert.Equal(t, VisibilityAll, o.Visibility)
	assert.Equal(t, []string{AffiliationOwner}, o.Affiliation)
	assert.Equal(t, ProtocolSSH, o.Protocol)
	assert.Equal(t, 1, o.Workers)
	require.NoError(t, o.Validate())
}

func TestBackupOptions_NormalizeIsIdempotent(t *testing.T) {
	o := BackupOptions{
		BackupDir:   "/b",
		Quiet:       true,
		Affiliation: []string{"owner", "collaborator", "owner"},
		Include:     Include{Starred: true},
	}
	o.Normalize()
	o.Normalize()

	assert.Equal(t, []string{"--quiet"}, o.GitArgs)
	assert.Equal(t, []string{"owner", "collaborator"}, o.Affiliation)
	assert.True(t, o.Include.Account, "starred implies account")
}

func TestBackupOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BackupOptions)
	}{
		{"visibility", func(o *BackupOptions) { o.Visibility = "internal" }},
		{"affiliation", func(o *BackupOptions) { o.Affiliation = []string{"friend"} }},
		{"protocol", func(o *BackupOptions) { o.Protocol = "ftp" }},
		{"backup dir", func(o *BackupOptions) { o.BackupDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := BackupOptions{BackupDir: "/b"}
			o.Normalize()
			tt.mutate(&o)

			err := o.Validate()

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestInclude_Everything(t *testing.T) {
	i := Include{StarredGists: true}
	i.Everything()

	assert.True(t, i.Issues)
	assert.True(t, i.Assets)
	assert.True(t, i.Wiki)
	assert.False(t, i.Gists, "gists stay opt-in")
	assert.True(t, i.StarredGists, "explicit starred gists survive")
	assert.True(t, i.NeedsAccount())
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol(" HTTP ")
	require.NoError(t, err)
	assert.Equal(t, ProtocolHTTP, p)

	_, err = ParseProtocol("rsync")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
