// Copyright (c) 2022-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// mpi_detect reports which MPI implementation is installed in a directory,
// along with the profile name a detection run would generate for it.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gvallee/go_mpi_container/pkg/mpi"
)

func main() {
	dir := flag.String("dir", "", "MPI installation directory to inspect")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -dir <installation directory>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}

	i, err := mpi.DetectFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", *dir, err)
		os.Exit(1)
	}
	fmt.Printf("%s %s (profile name: %s)\n", i.ID, i.Version, i.ProfileName())
}
