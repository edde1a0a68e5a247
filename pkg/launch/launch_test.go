// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package launch

import (
	"testing"

	"github.com/gvallee/go_mpi_container/pkg/container"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	base := profile.Profile{
		Name:      "stored",
		Backend:   container.SingularityID,
		Image:     "/images/mpi.sif",
		Libraries: []string{"/usr/lib/libmpi.so.40"},
	}
	overrides := profile.Profile{
		Image:     "/images/other.sif",
		Libraries: []string{"/usr/lib/libucp.so.0"},
	}

	merged, err := Resolve(base, overrides)
	require.NoError(t, err)
	assert.Equal(t, "/images/other.sif", merged.Image)
	assert.Equal(t, container.SingularityID, merged.Backend)
	assert.ElementsMatch(t,
		[]string{"/usr/lib/libmpi.so.40", "/usr/lib/libucp.so.0"},
		merged.Libraries)
}

func TestResolveGuessesBackend(t *testing.T) {
	merged, err := Resolve(profile.Profile{}, profile.Profile{Image: "ubuntu:22.04"})
	require.NoError(t, err)
	assert.Equal(t, container.DockerID, merged.Backend)

	merged, err = Resolve(profile.Profile{Backend: container.ShifterID},
		profile.Profile{Image: "ubuntu:22.04"})
	require.NoError(t, err)
	assert.Equal(t, container.ShifterID, merged.Backend)
}

func TestValidate(t *testing.T) {
	err := Validate(&profile.Profile{Name: "empty"})
	require.Error(t, err)

	err = Validate(&profile.Profile{Libraries: []string{"/usr/lib/libmpi.so.40"}})
	require.Error(t, err, "a profile without an image cannot drive a launch")

	err = Validate(&profile.Profile{
		Backend: container.SingularityID,
		Image:   "/images/mpi.sif",
	})
	require.NoError(t, err)
}

func TestInnerCommand(t *testing.T) {
	p := profile.Profile{
		Backend:   container.SingularityID,
		Image:     "/images/mpi.sif",
		Source:    "/etc/profile.d/mpi.sh",
		Libraries: []string{"/usr/lib/libmpi.so.40"},
		Files:     []string{"/etc/libibverbs.d"},
	}

	cmd := innerCommand("/usr/bin/mpicl", &p, []string{"./a.out", "-x", "1"}, false)
	assert.Equal(t, []string{
		"/usr/bin/mpicl", "execute",
		"--backend", "singularity",
		"--image", "/images/mpi.sif",
		"--source", "/etc/profile.d/mpi.sh",
		"--libraries", "/usr/lib/libmpi.so.40",
		"--files", "/etc/libibverbs.d",
		"--",
		"./a.out", "-x", "1",
	}, cmd)

	cmd = innerCommand("/usr/bin/mpicl", &profile.Profile{
		Backend: container.SingularityID,
		Image:   "/images/mpi.sif",
		WI4MPI:  "/opt/wi4mpi",
	}, []string{"./a.out"}, true)
	assert.Contains(t, cmd, "--debug")
	assert.Contains(t, cmd, "--wi4mpi")
}

func TestRewrite(t *testing.T) {
	req := Request{
		Profile: profile.Profile{
			Backend: container.SingularityID,
			Image:   "/images/mpi.sif",
		},
		Argv: []string{"/fake/bin/srun", "-n", "2", "./a.out"},
	}

	argv, err := Rewrite(&req, "/usr/bin/mpicl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/fake/bin/srun", "-n", "2",
		"/usr/bin/mpicl", "execute",
		"--backend", "singularity",
		"--image", "/images/mpi.sif",
		"--",
		"./a.out",
	}, argv)
}

func TestRewriteNoProgram(t *testing.T) {
	req := Request{
		Argv: []string{"/fake/bin/srun", "-n", "2"},
	}
	_, err := Rewrite(&req, "/usr/bin/mpicl")
	require.Error(t, err)
}
