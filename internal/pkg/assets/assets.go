// Copyright (c) 2022-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package assets ships the builtin system profiles, for machines whose MPI
// stack is known in advance and does not need to be probed.
package assets

import (
	"embed"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/pkg/errors"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// Names returns the sorted list of the builtin system profile names
func Names() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// Get loads a builtin system profile by name
func Get(name string) (*profile.Profile, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".json"))
	if err != nil {
		return nil, errors.Errorf("unknown system %s (available: %s)", name, strings.Join(Names(), ", "))
	}

	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "builtin profile %s is corrupted", name)
	}
	return &p, nil
}
