// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirs(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		fn   func() (string, error)
		want string
	}{
		{
			name: "config from env",
			env:  map[string]string{"XDG_CONFIG_HOME": "/custom/config"},
			fn:   ConfigDir,
			want: "/custom/config/libraryhub",
		},
		{
			name: "config default",
			env:  map[string]string{"XDG_CONFIG_HOME": "", "HOME": "/home/reader"},
			fn:   ConfigDir,
			want: "/home/reader/.config/libraryhub",
		},
		{
			name: "data from env",
			env:  map[string]string{"XDG_DATA_HOME": "/custom/data"},
			fn:   DataDir,
			want: "/custom/data/libraryhub",
		},
		{
			name: "data default",
			env:  map[string]string{"XDG_DATA_HOME": "", "HOME": "/home/reader"},
			fn:   DataDir,
			want: "/home/reader/.local/share/libraryhub",
		},
		{
			name: "config file",
			env:  map[string]string{"XDG_CONFIG_HOME": "/etc/xdg"},
			fn:   ConfigFile,
			want: "/etc/xdg/libraryhub/config.yaml",
		},
		{
			name: "env file",
			env:  map[string]string{"XDG_CONFIG_HOME": "/etc/xdg"},
			fn:   EnvFile,
			want: "/etc/xdg/libraryhub/.env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, EnsureDir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	// Existing directories are fine.
	require.NoError(t, EnsureDir(path))
}

func TestEnsureDir_Failure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	err := EnsureDir(filepath.Join(file, "child"))
	require.Error(t, err)
}
