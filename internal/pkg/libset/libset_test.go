// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package libset

import (
	"testing"
)

func TestParseLDCache(t *testing.T) {
	output := `1337 libs found in cache '/etc/ld.so.cache'
	libmpi.so.40 (libc6,x86-64) => /usr/lib/x86_64-linux-gnu/libmpi.so.40
	libmpi.so (libc6,x86-64) => /usr/lib/x86_64-linux-gnu/libmpi.so
	libc.so.6 (libc6,x86-64) => /lib/x86_64-linux-gnu/libc.so.6
	libc.so.6 (libc6) => /lib32/libc.so.6
garbage line without an arrow
`
	cache := ParseLDCache(output)

	if cache["libmpi.so.40"] != "/usr/lib/x86_64-linux-gnu/libmpi.so.40" {
		t.Fatalf("libmpi.so.40 resolved to %s", cache["libmpi.so.40"])
	}
	// The first entry for a given soname wins
	if cache["libc.so.6"] != "/lib/x86_64-linux-gnu/libc.so.6" {
		t.Fatalf("libc.so.6 resolved to %s", cache["libc.so.6"])
	}
	if len(cache) != 3 {
		t.Fatalf("ParseLDCache() returned %d entries instead of 3", len(cache))
	}
}

func TestParseLoaderTrace(t *testing.T) {
	output := `     12345:	file=libmpi.so.40 [0];  needed by ./a.out [0]
     12345:	file=libmpi.so.40 [0];  generating link map
     12345:	calling init: /lib/x86_64-linux-gnu/libc.so.6
     12345:	calling init: /usr/lib/x86_64-linux-gnu/libmpi.so.40
     12345:	calling init: /usr/lib/x86_64-linux-gnu/libmpi.so.40
     12345:	initialize program: ./a.out
`
	paths := ParseLoaderTrace(output)
	if len(paths) != 2 {
		t.Fatalf("ParseLoaderTrace() returned %d paths instead of 2: %v", len(paths), paths)
	}
	if paths[0] != "/lib/x86_64-linux-gnu/libc.so.6" {
		t.Fatalf("unexpected first path: %s", paths[0])
	}
	if paths[1] != "/usr/lib/x86_64-linux-gnu/libmpi.so.40" {
		t.Fatalf("unexpected second path: %s", paths[1])
	}
}

func TestParseLibcVersion(t *testing.T) {
	tests := map[string]string{
		"ldd (Ubuntu GLIBC 2.31-0ubuntu9.9) 2.31\nCopyright (C) 2020":               "2.31.0",
		"ldd (GNU libc) 2.17\nCopyright (C) 2012 Free Software Foundation":          "2.17.0",
		"GNU C Library (GNU libc) stable release version 2.28.\nCopyright (C) ...": "2.28.0",
	}

	for output, expected := range tests {
		version, err := ParseLibcVersion(output)
		if err != nil {
			t.Fatalf("ParseLibcVersion() failed on %q: %s", output, err)
		}
		if version.String() != expected {
			t.Fatalf("ParseLibcVersion() returned %s instead of %s", version.String(), expected)
		}
	}

	_, err := ParseLibcVersion("not a libc banner")
	if err == nil {
		t.Fatalf("ParseLibcVersion() did not fail on invalid input")
	}
}

func TestTopLevel(t *testing.T) {
	set := make(Set)
	set.Add(Library{Name: "libmpi.so.40", Path: "/usr/lib/libmpi.so.40", Needed: []string{"libucp.so.0", "libc.so.6"}})
	set.Add(Library{Name: "libucp.so.0", Path: "/usr/lib/libucp.so.0", Needed: []string{"libc.so.6"}})
	set.Add(Library{Name: "libc.so.6", Path: "/lib/libc.so.6"})

	roots := set.TopLevel()
	if len(roots) != 1 {
		t.Fatalf("TopLevel() returned %d roots instead of 1", len(roots))
	}
	if roots[0].Name != "libmpi.so.40" {
		t.Fatalf("TopLevel() returned %s instead of libmpi.so.40", roots[0].Name)
	}
}

func TestFilterGlib(t *testing.T) {
	set := make(Set)
	set.Add(Library{Name: "libmpi.so.40", Path: "/usr/lib/libmpi.so.40"})
	set.Add(Library{Name: "libc.so.6", Path: "/lib/libc.so.6"})
	set.Add(Library{Name: "libpthread.so.0", Path: "/lib/libpthread.so.0"})
	set.Add(Library{Name: "ld-linux-x86-64.so.2", Path: "/lib64/ld-linux-x86-64.so.2"})

	filtered := set.FilterGlib()
	if len(filtered) != 1 {
		t.Fatalf("FilterGlib() kept %d entries instead of 1", len(filtered))
	}
	if _, ok := filtered["libmpi.so.40"]; !ok {
		t.Fatalf("FilterGlib() dropped libmpi.so.40")
	}
}

func TestIsLinker(t *testing.T) {
	if !IsLinker("ld-linux-x86-64.so.2") {
		t.Fatalf("ld-linux-x86-64.so.2 not detected as a linker")
	}
	if !IsLinker("/lib/ld-musl-x86_64.so.1") {
		t.Fatalf("ld-musl-x86_64.so.1 not detected as a linker")
	}
	if IsLinker("libmpi.so.40") {
		t.Fatalf("libmpi.so.40 detected as a linker")
	}
}
