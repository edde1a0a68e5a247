// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "profiles"))
	require.NoError(t, err)
	return s
}

func TestStoreCreateGet(t *testing.T) {
	s := testStore(t)

	p := &Profile{
		Name:      "openmpi-4.1.5",
		Backend:   "singularity",
		Image:     "/images/mpi.sif",
		Libraries: []string{"/usr/lib/libmpi.so.40"},
	}
	require.NoError(t, s.Create(p))
	assert.NotEmpty(t, p.ID)

	loaded, err := s.Get("openmpi-4.1.5")
	require.NoError(t, err)
	assert.Equal(t, p.Name, loaded.Name)
	assert.Equal(t, p.Backend, loaded.Backend)
	assert.Equal(t, p.Libraries, loaded.Libraries)
	assert.Equal(t, p.ID, loaded.ID)

	// Creating over an existing name must fail
	assert.Error(t, s.Create(&Profile{Name: "openmpi-4.1.5"}))

	// Save overwrites
	p.Image = "/images/other.sif"
	require.NoError(t, s.Save(p))
	loaded, err = s.Get("openmpi-4.1.5")
	require.NoError(t, err)
	assert.Equal(t, "/images/other.sif", loaded.Image)
}

func TestStoreInvalidName(t *testing.T) {
	s := testStore(t)

	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.Error(t, s.Create(&Profile{Name: name}), "name %q accepted", name)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := testStore(t)

	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreDelete(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Create(&Profile{Name: "mpich-3.4.2"}))
	require.NoError(t, s.Select("mpich-3.4.2"))

	require.NoError(t, s.Delete("mpich-3.4.2"))
	assert.False(t, s.Exists("mpich-3.4.2"))

	// The selection pointing at the deleted profile is cleared
	name, err := s.SelectedName()
	require.NoError(t, err)
	assert.Empty(t, name)

	assert.True(t, errors.Is(s.Delete("mpich-3.4.2"), ErrNotFound))
}

func TestStoreList(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Create(&Profile{Name: "zeta"}))
	require.NoError(t, s.Create(&Profile{Name: "alpha"}))

	// A stray non-profile file must not break listing
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "notes.txt"), []byte("x"), 0644))

	profiles, err := s.List()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alpha", profiles[0].Name)
	assert.Equal(t, "zeta", profiles[1].Name)
}

func TestStoreSelection(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Create(&Profile{Name: "prof", Backend: "podman"}))

	assert.Error(t, s.Select("missing"))
	require.NoError(t, s.Select("prof"))

	selected, err := s.Selected()
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "prof", selected.Name)

	require.NoError(t, s.Unselect())
	require.NoError(t, s.Unselect())

	selected, err = s.Selected()
	require.NoError(t, err)
	assert.Nil(t, selected)
}

func TestStoreCopy(t *testing.T) {
	s := testStore(t)

	orig := &Profile{Name: "orig", Backend: "shifter", Files: []string{"/etc/hosts"}}
	require.NoError(t, s.Create(orig))
	require.NoError(t, s.Copy("orig", "dup"))

	dup, err := s.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, orig.Backend, dup.Backend)
	assert.Equal(t, orig.Files, dup.Files)
	assert.NotEqual(t, orig.ID, dup.ID)
}

func TestProfileEmpty(t *testing.T) {
	p := &Profile{Name: "bare"}
	assert.True(t, p.Empty())

	p.Image = "/images/mpi.sif"
	assert.False(t, p.Empty())
}
