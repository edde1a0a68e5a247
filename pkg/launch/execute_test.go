// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package launch

import (
	"testing"

	"github.com/gvallee/go_mpi_container/internal/pkg/libset"
	"github.com/gvallee/go_mpi_container/pkg/container"
	"github.com/stretchr/testify/assert"
)

func testImportedSet() libset.Set {
	set := make(libset.Set)
	set.Add(libset.Library{
		Name:   "libmpi.so.40",
		Path:   "/usr/lib/libmpi.so.40",
		Needed: []string{"libucp.so.0"},
	})
	set.Add(libset.Library{
		Name: "libucp.so.0",
		Path: "/usr/lib/libucp.so.0",
	})
	return set
}

func TestPreloadPaths(t *testing.T) {
	set := testImportedSet()

	// The guest ships its own libmpi: the imported root must be preloaded so
	// the host copy wins
	guest := map[string]bool{"libmpi.so.40": true, "libc.so.6": true}
	paths := preloadPaths(set, guest)
	assert.Equal(t, []string{container.ImportLibraryDir + "/libmpi.so.40"}, paths)

	// Soname unknown to the guest: LD_LIBRARY_PATH is enough, no preload
	paths = preloadPaths(set, map[string]bool{"libc.so.6": true})
	assert.Empty(t, paths)
}

func TestPreloadPathsNoGuestInventory(t *testing.T) {
	paths := preloadPaths(testImportedSet(), nil)
	assert.Equal(t, []string{container.ImportLibraryDir + "/libmpi.so.40"}, paths)
}
