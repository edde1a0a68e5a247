// Copyright (c) 2022-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package wi4mpi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeInstall(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0755))
	for _, name := range []string{"libwi4mpi.so", "libwi4mpi_OMPI_MPICH.so.1", "notalibrary.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "lib", name), []byte{}, 0644))
	}
	return root
}

func TestCheck(t *testing.T) {
	install := &Install{Root: fakeInstall(t)}
	assert.NoError(t, install.Check())

	assert.Error(t, (&Install{}).Check())
	assert.Error(t, (&Install{Root: t.TempDir()}).Check())
}

func TestLibraries(t *testing.T) {
	install := &Install{Root: fakeInstall(t)}

	libraries, err := install.Libraries()
	require.NoError(t, err)
	require.Len(t, libraries, 2)
	for _, lib := range libraries {
		assert.Contains(t, lib, ".so")
	}
}

func TestPreload(t *testing.T) {
	install := &Install{Root: fakeInstall(t)}

	preload := install.Preload()
	require.Len(t, preload, 1)
	assert.Equal(t, filepath.Join(install.Root, "lib", "libwi4mpi.so"), preload[0])
}

func TestEnv(t *testing.T) {
	install := &Install{Root: "/opt/wi4mpi", Options: "-T openmpi -F mpich"}

	env := install.Env()
	assert.Contains(t, env, "WI4MPI_ROOT=/opt/wi4mpi")
	assert.Contains(t, env, "WI4MPI_TO=openmpi")
	assert.Contains(t, env, "WI4MPI_FROM=mpich")
}

func TestEnvNoOptions(t *testing.T) {
	install := &Install{Root: "/opt/wi4mpi"}
	assert.Equal(t, []string{"WI4MPI_ROOT=/opt/wi4mpi"}, install.Env())
}
