// Copyright (c) 2022-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "perlmutter")
	assert.Contains(t, names, "summit")
}

func TestGet(t *testing.T) {
	p, err := Get("perlmutter")
	require.NoError(t, err)
	assert.Equal(t, "perlmutter", p.Name)
	assert.Equal(t, "shifter", p.Backend)
	assert.NotEmpty(t, p.Libraries)

	_, err = Get("doesnotexist")
	assert.Error(t, err)
}
