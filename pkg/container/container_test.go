// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessBackend(t *testing.T) {
	tests := map[string]string{
		"/images/mpi.sif":          SingularityID,
		"/images/mpi.simg":         SingularityID,
		"docker://ubuntu:22.04":    SingularityID,
		"library://alpine":         SingularityID,
		"/images/rootfs.sqfs":      ShifterID,
		"ubuntu:22.04":             DockerID,
		"registry.io/group/a:v1.0": DockerID,
	}

	for image, expected := range tests {
		backend, err := GuessBackend(image)
		require.NoError(t, err, "image %s", image)
		assert.Equal(t, expected, backend, "image %s", image)
	}

	for _, image := range []string{"", "/images/rootfs", "plainname"} {
		_, err := GuessBackend(image)
		assert.Error(t, err, "image %q", image)
	}
}

func TestBindFile(t *testing.T) {
	c := &Container{}

	c.BindFile("/opt//libs/", "", ReadOnly)
	require.Len(t, c.Binds, 1)
	assert.Equal(t, "/opt/libs", c.Binds[0].Source)
	assert.Equal(t, "/opt/libs", c.Binds[0].Dest)

	// Duplicates are dropped
	c.BindFile("/opt/libs", "/opt/libs", ReadOnly)
	assert.Len(t, c.Binds, 1)

	c.BindFile("/opt/libs", "/elsewhere", ReadWrite)
	require.Len(t, c.Binds, 2)
	assert.Equal(t, ReadWrite, c.Binds[1].Option)
}

func TestBindFileResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	link := filepath.Join(dir, "alias")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	require.NoError(t, os.Symlink(target, link))

	c := &Container{}
	c.BindFile(link, "/dest", ReadOnly)
	require.Len(t, c.Binds, 1)
	assert.Equal(t, target, c.Binds[0].Source)
}

func TestSingularityArgs(t *testing.T) {
	b := &Backend{ID: SingularityID, BinPath: "/usr/bin/singularity"}
	e := &Exec{
		Image: "/images/mpi.sif",
		Binds: []Bind{
			{Source: "/usr/lib/libmpi.so.40", Dest: ImportLibraryDir + "/libmpi.so.40", Option: ReadOnly},
			{Source: "/data", Dest: "/data", Option: ReadWrite},
		},
		Env:     []string{"LD_LIBRARY_PATH=" + ImportLibraryDir},
		Command: []string{"./a.out", "-v"},
	}

	args, env := singularityArgs(b, e)
	assert.Equal(t, []string{
		"exec",
		"--bind", "/usr/lib/libmpi.so.40:" + ImportLibraryDir + "/libmpi.so.40:ro",
		"--bind", "/data:/data:rw",
		"/images/mpi.sif",
		"./a.out", "-v",
	}, args)
	assert.Contains(t, env, "SINGULARITYENV_LD_LIBRARY_PATH="+ImportLibraryDir)
	assert.Contains(t, env, "APPTAINERENV_LD_LIBRARY_PATH="+ImportLibraryDir)
}

func TestDockerStyleArgs(t *testing.T) {
	b := &Backend{ID: DockerID, BinPath: "/usr/bin/docker"}
	e := &Exec{
		Image: "ubuntu:22.04",
		Binds: []Bind{
			{Source: "/etc/hosts", Dest: "/etc/hosts", Option: ReadOnly},
		},
		Env:     []string{"FOO=bar"},
		Command: []string{"hostname"},
	}

	args, env := dockerStyleArgs(b, e)
	assert.Equal(t, []string{
		"run", "--rm",
		"-v", "/etc/hosts:/etc/hosts:ro",
		"-e", "FOO=bar",
		"ubuntu:22.04",
		"hostname",
	}, args)
	assert.Nil(t, env)
}

func TestShifterArgs(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "udiRoot.conf")
	config := "system=testsys\nsiteFs=/scratch:/scratch;\nsiteEnv=SHIFTER_RUNTIME=1\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	t.Setenv("SHIFTER_SYSCONFIG", configPath)

	b := &Backend{ID: ShifterID, BinPath: "/usr/bin/shifter"}
	e := &Exec{
		Image: "ubuntu:22.04",
		Binds: []Bind{
			// Covered by siteFs, must be skipped
			{Source: "/scratch", Dest: "/scratch", Option: ReadWrite},
			{Source: "/usr/lib/libmpi.so.40", Dest: ImportLibraryDir + "/libmpi.so.40", Option: ReadOnly},
		},
		Env:     []string{"FOO=bar"},
		Command: []string{"./a.out"},
	}

	args, env := shifterArgs(b, e)
	assert.Equal(t, []string{
		"--image=ubuntu:22.04",
		"--volume=/usr/lib/libmpi.so.40:" + ImportLibraryDir + "/libmpi.so.40",
		"./a.out",
	}, args)
	assert.Equal(t, []string{"SHIFTER_RUNTIME=1", "FOO=bar"}, env)
}

func TestLoadUnknownBackend(t *testing.T) {
	_, err := Load("lxc")
	assert.Error(t, err)
}

func TestCommandLine(t *testing.T) {
	c := &Container{
		Backend: Backend{ID: DockerID, BinPath: "/usr/bin/docker", argsFn: dockerStyleArgs},
		Image:   "ubuntu:22.04",
	}

	argv, _ := c.CommandLine([]string{"true"})
	assert.Equal(t, []string{"/usr/bin/docker", "run", "--rm", "ubuntu:22.04", "true"}, argv)
}
