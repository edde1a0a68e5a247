// Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mpich

import "testing"

func TestParseMPICHInfoOutputForVersion(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		expectedOutput string
	}{
		{
			name: "v3.4.2",
			input: `HYDRA build details:
    Version:                                 3.4.2
    Release Date:                            Wed May 26 15:51:40 CDT 2021
    CC:                              gcc
    Process Manager:                         pmi
    Launchers available:                     ssh rsh fork slurm ll lsf sge manual persist
    Topology libraries available:            hwloc
    Resource management kernels available:   user slurm ll lsf sge pbs cobalt
    Demux engines available:                 poll select`,
			expectedOutput: "3.4.2",
		},
		{
			name: "4.0b1",
			input: `HYDRA build details:
    Version:                                 4.0b1
    Release Date:                            Mon Nov 15 10:22:52 CST 2021
    CC:                              gcc
    Process Manager:                         pmi
    Launchers available:                     ssh rsh fork slurm ll lsf sge manual persist
    Topology libraries available:            hwloc
    Resource management kernels available:   user slurm ll lsf sge pbs cobalt
    Demux engines available:                 poll select`,
			expectedOutput: "4.0b1",
		},
	}

	for _, tt := range tests {
		version, err := parseMPICHInfoOutputForVersion(tt.input)
		if err != nil {
			t.Fatalf("parseMPICHInfoOutputForVersion() failed on %s: %s", tt.name, err)
		}
		if version != tt.expectedOutput {
			t.Fatalf("parseMPICHInfoOutputForVersion() returned %s instead of %s", version, tt.expectedOutput)
		}
	}
}

func TestParseMPICHInfoOutputForVersionInvalid(t *testing.T) {
	// Output shorter than the expected version line must not panic
	for _, output := range []string{"", "HYDRA build details:", "Open MPI v4.1.2\n\nsecond line\n"} {
		_, err := parseMPICHInfoOutputForVersion(output)
		if err == nil {
			t.Fatalf("parseMPICHInfoOutputForVersion() succeeded on %q", output)
		}
	}
}
