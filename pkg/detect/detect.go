// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package detect probes a launcher command to find the shared libraries an
// MPI job loads at run time. The launcher runs a sample program (or the one
// given on the command line) with the dynamic linker in debug mode, and the
// loader trace is completed with a static walk of the binary's dependencies
// and with the interconnect libraries present in the host linker cache.
package detect

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_mpi_container/internal/pkg/libset"
	"github.com/gvallee/go_mpi_container/internal/pkg/network"
	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
	"github.com/gvallee/go_mpi_container/pkg/app"
	"github.com/gvallee/go_mpi_container/pkg/implem"
	"github.com/gvallee/go_mpi_container/pkg/launcher"
	"github.com/gvallee/go_mpi_container/pkg/mpi"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/gvallee/go_util/pkg/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

//go:embed assets/sample.c
var sampleSource string

// Result gathers everything a probe run reveals about the MPI stack
type Result struct {
	// Libraries is the list of host shared libraries the job loaded
	Libraries []string

	// MPI describes the implementation behind the launcher, when detected
	MPI *implem.Info

	// Launcher describes the launcher the probe ran under
	Launcher launcher.Info
}

// CompileSample compiles the embedded sample MPI program with the mpicc of a
// given installation and returns the path to the binary. Binaries are cached
// per MPI implementation in the user prefix
func CompileSample(mpiCfg *implem.Info, sysCfg *sys.Config) (string, error) {
	if mpiCfg == nil || mpiCfg.InstallDir == "" {
		return "", errors.New("undefined MPI installation")
	}

	mpiccPath := filepath.Join(mpiCfg.InstallDir, "bin", "mpicc")
	if !util.FileExists(mpiccPath) {
		return "", errors.Errorf("no mpicc in %s", mpiCfg.InstallDir)
	}

	binPath := filepath.Join(sysCfg.BinaryDir, "sample-"+mpiCfg.ProfileName())
	if util.FileExists(binPath) {
		log.Debugf("* reusing the sample binary %s", binPath)
		return binPath, nil
	}

	srcPath := filepath.Join(sysCfg.BinaryDir, "sample.c")
	if err := os.WriteFile(srcPath, []byte(sampleSource), 0644); err != nil {
		return "", errors.Wrap(err, "unable to write the sample program")
	}

	var cmd advexec.Advcmd
	cmd.BinPath = mpiccPath
	cmd.CmdArgs = []string{"-o", binPath, srcPath}
	res := cmd.Run()
	if res.Err != nil {
		return "", errors.Wrapf(res.Err, "unable to compile the sample program: %s", res.Stderr)
	}

	return binPath, nil
}

// Probe runs a launcher command with the dynamic linker in debug mode and
// returns the shared objects the job loads. When the command line has no
// program after the launcher arguments, the embedded sample program is
// compiled and launched instead
func Probe(argv []string, sysCfg *sys.Config) (*Result, error) {
	result := new(Result)

	info, application, err := launcher.Detect(argv)
	if err != nil && !errors.Is(err, launcher.ErrNoProgram) {
		return nil, err
	}
	result.Launcher = info
	result.MPI = info.MPI

	if result.MPI == nil {
		mpiCfg, err := mpi.Detect()
		if err == nil {
			result.MPI = mpiCfg
		}
	}

	if application.BinPath == "" {
		binPath, err := CompileSample(result.MPI, sysCfg)
		if err != nil {
			return nil, errors.Wrap(err, "no program to probe and the sample program is unavailable")
		}
		application.Name = filepath.Base(binPath)
		application.BinPath = binPath
	}

	checkSingleHost(&info)

	traced, err := loaderTrace(&info, &application)
	if err != nil {
		return nil, err
	}

	cache, err := libset.HostLDCache()
	if err != nil {
		return nil, err
	}

	set := libset.FromPaths(traced)

	// The dynamic pass misses libraries the program was linked against but
	// never initialized during the probe run
	static, err := libset.FromBinary(application.BinPath, cache)
	if err != nil {
		log.Debugf("static pass on %s failed: %s", application.BinPath, err)
	} else {
		for _, lib := range static {
			if _, ok := set[lib.Name]; !ok {
				set.Add(lib)
			}
		}
	}

	// Interconnect libraries are loaded lazily and escape both passes
	for _, path := range network.DetectLibraries(cache) {
		if _, ok := set[filepath.Base(path)]; !ok {
			set.Add(libset.Library{Path: path})
		}
	}

	result.Libraries = set.Paths()
	log.Debugf("-> probe found %d libraries", len(result.Libraries))

	return result, nil
}

// Profile converts a probe result into a persistable profile
func (r *Result) Profile(name string) profile.Profile {
	p := profile.Profile{
		Name:      name,
		Libraries: r.Libraries,
	}
	if r.MPI != nil {
		p.MPI = *r.MPI
		if p.Name == "" {
			p.Name = r.MPI.ProfileName()
		}
	}
	return p
}

// loaderTrace runs the launcher command with LD_DEBUG set and parses the
// loader output into library paths
func loaderTrace(info *launcher.Info, application *app.Info) ([]string, error) {
	var cmd advexec.Advcmd
	cmd.BinPath = info.BinPath
	cmd.CmdArgs = append(cmd.CmdArgs, info.Args...)
	cmd.CmdArgs = append(cmd.CmdArgs, application.Argv()...)
	cmd.Env = append(os.Environ(), "LD_DEBUG=libs,files")

	res := cmd.Run()
	if res.Err != nil {
		return nil, errors.Wrapf(res.Err, "probe run failed: %s", res.Stderr)
	}

	// The loader writes its trace to stderr
	paths := libset.ParseLoaderTrace(res.Stderr)
	if len(paths) == 0 {
		paths = libset.ParseLoaderTrace(res.Stdout)
	}
	if len(paths) == 0 {
		return nil, errors.New("the loader trace is empty, the launcher may scrub the environment")
	}

	return paths, nil
}

// checkSingleHost warns when all the ranks of the probe run on a single
// host: lazily loaded network libraries only show up when ranks actually
// cross nodes, so a single-host probe may miss them
func checkSingleHost(info *launcher.Info) {
	var cmd advexec.Advcmd
	cmd.BinPath = info.BinPath
	cmd.CmdArgs = append(cmd.CmdArgs, info.Args...)
	cmd.CmdArgs = append(cmd.CmdArgs, "hostname")
	res := cmd.Run()
	if res.Err != nil {
		return
	}

	hosts := uniqueHosts(res.Stdout)
	if len(hosts) == 1 {
		log.Warnf("all ranks ran on %s; libraries that are only loaded across nodes may escape detection", hosts[0])
	}
}

// uniqueHosts returns the distinct hostnames found in the output of a
// 'launcher hostname' run, one line per rank
func uniqueHosts(output string) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, line := range strings.Split(output, "\n") {
		host := strings.TrimSpace(line)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts
}
