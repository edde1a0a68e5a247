// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package profile

import (
	"encoding/json"
	"regexp"

	"github.com/gvallee/go_mpi_container/pkg/implem"
	"github.com/pkg/errors"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Profile is a named, persisted description of everything an MPI job needs
// to run correctly inside a container on this host
type Profile struct {
	// ID uniquely identifies the profile, names can be reused after deletion
	ID string `json:"id,omitempty"`

	// Name is the user-facing name of the profile
	Name string `json:"name"`

	// Backend is the container backend the profile targets (e.g., singularity)
	Backend string `json:"backend,omitempty"`

	// Image is the default container image to use with this profile
	Image string `json:"image,omitempty"`

	// Source is a script sourced in the container before the command runs
	Source string `json:"source,omitempty"`

	// Files is the list of host files to make available in the container
	Files []string `json:"files,omitempty"`

	// Libraries is the list of host shared libraries to import in the container
	Libraries []string `json:"libraries,omitempty"`

	// WI4MPI is the path to a WI4MPI installation to use during launches
	WI4MPI string `json:"wi4mpi,omitempty"`

	// WI4MPIOptions is the set of options to pass to WI4MPI
	WI4MPIOptions string `json:"wi4mpi_options,omitempty"`

	// MPI records the MPI implementation the profile was built from
	MPI implem.Info `json:"mpi,omitempty"`
}

// CheckName validates a profile name so it can safely be used as a file name
func CheckName(name string) error {
	if name == "" {
		return errors.New("empty profile name")
	}
	if !nameRe.MatchString(name) {
		return errors.Errorf("invalid profile name %q", name)
	}
	return nil
}

// Empty reports whether the profile carries no launch-relevant data at all.
// Empty profiles are legal in the store but flagged at resolution time
func (p *Profile) Empty() bool {
	return p.Backend == "" && p.Image == "" && p.Source == "" &&
		len(p.Files) == 0 && len(p.Libraries) == 0 && p.WI4MPI == ""
}

// String returns the JSON rendition of the profile
func (p *Profile) String() string {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return p.Name
	}
	return string(data)
}
