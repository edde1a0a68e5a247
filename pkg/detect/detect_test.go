// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package detect

import (
	"strings"
	"testing"

	"github.com/gvallee/go_mpi_container/pkg/implem"
)

func TestSampleSource(t *testing.T) {
	for _, symbol := range []string{"MPI_Init", "MPI_Allreduce", "MPI_Finalize"} {
		if !strings.Contains(sampleSource, symbol) {
			t.Fatalf("the sample program does not call %s", symbol)
		}
	}
}

func TestResultProfile(t *testing.T) {
	r := Result{
		Libraries: []string{"/usr/lib/libmpi.so.40"},
		MPI: &implem.Info{
			ID:         implem.OMPI,
			Version:    "4.1.2",
			InstallDir: "/opt/openmpi",
		},
	}

	p := r.Profile("")
	if p.Name != "openmpi-4.1.2" {
		t.Fatalf("expected the profile to be named after the implementation, got %s", p.Name)
	}
	if len(p.Libraries) != 1 || p.Libraries[0] != "/usr/lib/libmpi.so.40" {
		t.Fatalf("profile libraries do not match the probe result: %v", p.Libraries)
	}
	if p.MPI.ID != implem.OMPI {
		t.Fatalf("profile does not record the MPI implementation: %v", p.MPI)
	}

	p = r.Profile("mine")
	if p.Name != "mine" {
		t.Fatalf("explicit profile name was not honored, got %s", p.Name)
	}
}

func TestUniqueHosts(t *testing.T) {
	// All ranks on one node: exactly the case the probe must warn about
	hosts := uniqueHosts("node01\nnode01\nnode01\n")
	if len(hosts) != 1 || hosts[0] != "node01" {
		t.Fatalf("expected a single host, got %v", hosts)
	}

	hosts = uniqueHosts("node01\nnode02\nnode01\nnode02\n")
	if len(hosts) != 2 {
		t.Fatalf("expected two hosts, got %v", hosts)
	}

	hosts = uniqueHosts("\n\n")
	if len(hosts) != 0 {
		t.Fatalf("expected no host from empty output, got %v", hosts)
	}
}

func TestResultProfileNoMPI(t *testing.T) {
	var r Result
	p := r.Profile("")
	if p.Name != "" {
		t.Fatalf("expected an empty name without MPI details, got %s", p.Name)
	}
}
