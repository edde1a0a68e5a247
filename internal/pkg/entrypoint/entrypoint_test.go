// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package entrypoint

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	p := &Params{
		SourceScript: "/etc/profile.d/mpi.sh",
		LibraryDir:   "/.mpicl/hostlibs",
		Preload:      []string{"/.mpicl/hostlibs/libmpi.so.40"},
		Command:      []string{"./a.out", "--iterations", "10"},
	}

	script, err := p.Render()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash\n"))
	assert.Contains(t, script, ". /etc/profile.d/mpi.sh\n")
	assert.Contains(t, script, "export LD_LIBRARY_PATH=/.mpicl/hostlibs${LD_LIBRARY_PATH:+:$LD_LIBRARY_PATH}\n")
	assert.Contains(t, script, "export LD_PRELOAD=/.mpicl/hostlibs/libmpi.so.40${LD_PRELOAD:+:$LD_PRELOAD}\n")
	assert.Contains(t, script, "exec ./a.out --iterations 10\n")
	assert.NotContains(t, script, "set -x")
}

func TestRenderMinimal(t *testing.T) {
	p := &Params{Command: []string{"hostname"}}

	script, err := p.Render()
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\nexec hostname\n", script)
}

func TestRenderLinkerOverride(t *testing.T) {
	p := &Params{
		Linker:  "/.mpicl/hostlibs/ld-linux-x86-64.so.2",
		Command: []string{"/bin/true"},
		Debug:   true,
	}

	script, err := p.Render()
	require.NoError(t, err)
	assert.Contains(t, script, "set -x\n")
	assert.Contains(t, script, "exec /.mpicl/hostlibs/ld-linux-x86-64.so.2 /bin/true\n")
}

func TestRenderQuoting(t *testing.T) {
	p := &Params{Command: []string{"./a.out", "an argument", "it's", ""}}

	script, err := p.Render()
	require.NoError(t, err)
	assert.Contains(t, script, `exec ./a.out 'an argument' 'it'\''s' ''`)
}

func TestRenderNoCommand(t *testing.T) {
	p := &Params{}
	_, err := p.Render()
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	p := &Params{Command: []string{"hostname"}}

	path, err := p.Write(t.TempDir())
	require.NoError(t, err)
	defer os.Remove(path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "exec hostname")
}
