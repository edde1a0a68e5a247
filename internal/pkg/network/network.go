// Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package network

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// interconnectPrefixes lists the sonames of the libraries the usual MPI
// interconnect stacks rely on. They are often loaded lazily and therefore
// escape dynamic detection, so any of them present in the linker cache is
// added to the set
var interconnectPrefixes = []string{
	// UCX
	"libucp.so", "libucs.so", "libuct.so", "libucm.so",
	// OFI
	"libfabric.so",
	// verbs
	"libibverbs.so", "librdmacm.so",
	// PSM
	"libpsm2.so", "libpsm_infinipath.so",
	// HPE Slingshot
	"libcxi.so",
	"libmlx5.so", "libefa.so",
}

// DetectLibraries scans a linker cache for interconnect libraries
func DetectLibraries(cache map[string]string) []string {
	var found []string
	for soname, path := range cache {
		for _, prefix := range interconnectPrefixes {
			if strings.HasPrefix(soname, prefix) {
				log.Debugf("* interconnect library detected: %s (%s)", soname, path)
				found = append(found, path)
				break
			}
		}
	}
	return found
}
