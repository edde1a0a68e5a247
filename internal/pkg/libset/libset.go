// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package libset

import (
	"debug/elf"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gvallee/go_exec/pkg/advexec"
	log "github.com/sirupsen/logrus"
)

// Library gathers all the data tracked for a single shared object
type Library struct {
	// Name is the soname of the library (e.g., libmpi.so.40)
	Name string

	// Path is the absolute path to the library on the host
	Path string

	// Needed is the list of sonames the library depends on (DT_NEEDED)
	Needed []string
}

// Set is a collection of libraries indexed by soname
type Set map[string]Library

// glibPrefixes lists the sonames that are tied to a given glibc and must
// never be imported in a container running a different glibc
var glibPrefixes = []string{
	"libc.so", "libm.so", "libdl.so", "librt.so", "libpthread.so",
	"libutil.so", "libresolv.so", "libnsl.so", "libanl.so", "libcrypt.so",
	"libBrokenLocale.so", "libthread_db.so",
}

// Add inserts a library in the set, overwriting any previous entry with the
// same soname
func (s Set) Add(lib Library) {
	if lib.Name == "" {
		lib.Name = filepath.Base(lib.Path)
	}
	s[lib.Name] = lib
}

// Paths returns the list of host paths in the set
func (s Set) Paths() []string {
	var paths []string
	for _, lib := range s {
		if lib.Path != "" {
			paths = append(paths, lib.Path)
		}
	}
	return paths
}

// IsLinker reports whether a soname designates a dynamic linker
func IsLinker(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, "ld-linux") || strings.HasPrefix(base, "ld-musl") || strings.HasPrefix(base, "ld.so") || base == "ld64.so.1" || base == "ld64.so.2"
}

// IsGlib reports whether a soname belongs to the glibc family
func IsGlib(name string) bool {
	base := filepath.Base(name)
	if IsLinker(base) {
		return true
	}
	for _, prefix := range glibPrefixes {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}

// Linkers returns the dynamic linkers present in the set
func (s Set) Linkers() []Library {
	var linkers []Library
	for _, lib := range s {
		if IsLinker(lib.Name) {
			linkers = append(linkers, lib)
		}
	}
	return linkers
}

// FilterGlib returns a copy of the set without the glibc-family libraries
func (s Set) FilterGlib() Set {
	filtered := make(Set)
	for _, lib := range s {
		if !IsGlib(lib.Name) {
			filtered.Add(lib)
		}
	}
	return filtered
}

// TopLevel returns the libraries that no other library of the set requires.
// These are the roots of the dependency trees and the ones that need to be
// preloaded for the rest of the set to be pulled in
func (s Set) TopLevel() []Library {
	needed := make(map[string]bool)
	for _, lib := range s {
		for _, dep := range lib.Needed {
			needed[dep] = true
		}
	}

	var roots []Library
	for _, lib := range s {
		if !needed[lib.Name] && !IsLinker(lib.Name) {
			roots = append(roots, lib)
		}
	}
	return roots
}

// FromBinary walks the DT_NEEDED entries of an ELF binary and resolves them
// through the dynamic linker cache, returning the transitive closure of the
// binary's dependencies
func FromBinary(binPath string, cache map[string]string) (Set, error) {
	set := make(Set)
	if cache == nil {
		var err error
		cache, err = HostLDCache()
		if err != nil {
			return set, err
		}
	}

	pending := []string{binPath}
	visited := make(map[string]bool)
	for len(pending) > 0 {
		path := pending[0]
		pending = pending[1:]
		if visited[path] {
			continue
		}
		visited[path] = true

		needed, err := neededLibraries(path)
		if err != nil {
			return set, err
		}

		if path != binPath {
			set.Add(Library{Name: filepath.Base(path), Path: path, Needed: needed})
		}

		for _, soname := range needed {
			resolved, ok := cache[soname]
			if !ok {
				log.Debugf("unable to resolve %s from the linker cache", soname)
				continue
			}
			pending = append(pending, resolved)
		}
	}

	return set, nil
}

// FromPaths builds a set from a list of shared object paths, reading the
// DT_NEEDED entries of each one. Paths that cannot be parsed as ELF objects
// are skipped
func FromPaths(paths []string) Set {
	set := make(Set)
	for _, path := range paths {
		needed, err := neededLibraries(path)
		if err != nil {
			log.Debugf("skipping %s: %s", path, err)
			continue
		}
		set.Add(Library{Name: filepath.Base(path), Path: path, Needed: needed})
	}
	return set
}

func neededLibraries(path string) ([]string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	defer f.Close()

	needed, err := f.ImportedLibraries()
	if err != nil {
		return nil, fmt.Errorf("unable to read DT_NEEDED entries from %s: %w", path, err)
	}

	// The linker is referenced through PT_INTERP, not DT_NEEDED
	if interp := readInterp(f); interp != "" {
		needed = append(needed, filepath.Base(interp))
	}

	return needed, nil
}

func readInterp(f *elf.File) string {
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}
		data := make([]byte, prog.Filesz)
		_, err := prog.ReadAt(data, 0)
		if err != nil {
			return ""
		}
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

// HostLDCache runs ldconfig and returns the host linker cache as a
// soname to path map
func HostLDCache() (map[string]string, error) {
	var cmd advexec.Advcmd
	cmd.BinPath = "ldconfig"
	cmd.CmdArgs = append(cmd.CmdArgs, "-p")
	res := cmd.Run()
	if res.Err != nil {
		return nil, fmt.Errorf("unable to run ldconfig -p: %w", res.Err)
	}
	return ParseLDCache(res.Stdout), nil
}

// ParseLDCache parses the output of 'ldconfig -p' into a soname to path map
func ParseLDCache(output string) map[string]string {
	cache := make(map[string]string)
	for _, line := range strings.Split(output, "\n")[1:] {
		tokens := strings.Split(line, " => ")
		if len(tokens) != 2 {
			continue
		}
		soname := strings.Fields(strings.TrimSpace(tokens[0]))
		if len(soname) == 0 {
			continue
		}
		// First match wins, ldconfig lists the preferred entry first
		if _, ok := cache[soname[0]]; !ok {
			cache[soname[0]] = strings.TrimSpace(tokens[1])
		}
	}
	return cache
}

// ParseLoaderTrace extracts the absolute paths of the objects the dynamic
// linker reports loading when running with LD_DEBUG=libs,files
func ParseLoaderTrace(output string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, "calling init: ")
		if idx < 0 {
			continue
		}
		path := strings.TrimSpace(line[idx+len("calling init: "):])
		if !filepath.IsAbs(path) || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths
}

// Links returns the paths of all the entries of the library's directory that
// resolve to the same file, including the library itself. Binding every alias
// ensures a binary linked against libfoo.so.1 finds it even when the set was
// built from libfoo.so.1.2.3
func Links(libPath string) ([]string, error) {
	resolved, err := filepath.EvalSymlinks(libPath)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve %s: %w", libPath, err)
	}

	links := []string{resolved}
	entries, err := os.ReadDir(filepath.Dir(libPath))
	if err != nil {
		return links, nil
	}

	for _, entry := range entries {
		path := filepath.Join(filepath.Dir(libPath), entry.Name())
		if path == resolved {
			continue
		}
		target, err := filepath.EvalSymlinks(path)
		if err != nil || target != resolved {
			continue
		}
		links = append(links, path)
	}

	return links, nil
}

var libcVersionRe = regexp.MustCompile(`release version (\d+\.\d+(?:\.\d+)*)|\) (\d+\.\d+(?:\.\d+)*)`)

// ParseLibcVersion extracts the glibc version from the output of
// 'ldd --version' or from executing libc.so directly
func ParseLibcVersion(output string) (*semver.Version, error) {
	match := libcVersionRe.FindStringSubmatch(output)
	if match == nil {
		return nil, fmt.Errorf("no libc version found")
	}
	raw := match[1]
	if raw == "" {
		raw = match[2]
	}
	version, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid libc version %s: %w", raw, err)
	}
	return version, nil
}

// HostLibcVersion returns the glibc version of the host
func HostLibcVersion() (*semver.Version, error) {
	lddBin, err := exec.LookPath("ldd")
	if err != nil {
		return nil, fmt.Errorf("ldd not found: %w", err)
	}

	var cmd advexec.Advcmd
	cmd.BinPath = lddBin
	cmd.CmdArgs = append(cmd.CmdArgs, "--version")
	res := cmd.Run()
	if res.Err != nil {
		return nil, fmt.Errorf("unable to run ldd --version: %w", res.Err)
	}
	return ParseLibcVersion(res.Stdout)
}
