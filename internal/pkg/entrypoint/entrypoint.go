// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package entrypoint generates the bash script executed inside the container.
// The script restores the environment a containerized MPI process needs
// before handing control to the user command: sourced script, library path,
// preloads and, when the host glibc is overlaid, the host linker.
package entrypoint

import (
	"os"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const scriptTemplate = `#!/bin/bash
{{- if .Debug}}
set -x
{{- end}}
{{- if .SourceScript}}
. {{.SourceScript}}
{{- end}}
{{- if .LibraryDir}}
export LD_LIBRARY_PATH={{.LibraryDir}}${LD_LIBRARY_PATH:+:$LD_LIBRARY_PATH}
{{- end}}
{{- if .Preload}}
export LD_PRELOAD={{join .Preload ":"}}${LD_PRELOAD:+:$LD_PRELOAD}
{{- end}}
{{- if .Linker}}
exec {{.Linker}} {{quote .Command}}
{{- else}}
exec {{quote .Command}}
{{- end}}
`

// Params gathers everything the entry script needs to carry
type Params struct {
	// SourceScript is the in-container path of a script to source first
	SourceScript string

	// LibraryDir is prepended to LD_LIBRARY_PATH, colon-separated entries allowed
	LibraryDir string

	// Preload is the list of in-container library paths to LD_PRELOAD
	Preload []string

	// Linker is the in-container path of a linker to run the command with
	Linker string

	// Command is the user command and its arguments
	Command []string

	// Debug turns on shell tracing in the script
	Debug bool
}

func shellQuote(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"$`\\*?[]{}()<>|&;~#") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}
		quoted = append(quoted, arg)
	}
	return strings.Join(quoted, " ")
}

var tmpl = template.Must(template.New("entrypoint").Funcs(template.FuncMap{
	"join":  strings.Join,
	"quote": shellQuote,
}).Parse(scriptTemplate))

// Render returns the content of the entry script
func (p *Params) Render() (string, error) {
	if len(p.Command) == 0 {
		return "", errors.New("entrypoint has no command to run")
	}

	var builder strings.Builder
	if err := tmpl.Execute(&builder, p); err != nil {
		return "", errors.Wrap(err, "unable to render the entry script")
	}
	return builder.String(), nil
}

// Write renders the entry script to an executable temporary file and returns
// its path. The caller is responsible for removing it after the run
func (p *Params) Write(dir string) (string, error) {
	content, err := p.Render()
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "entrypoint-*.sh")
	if err != nil {
		return "", errors.Wrap(err, "unable to create the entry script")
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrap(err, "unable to write the entry script")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "unable to write the entry script")
	}

	if err := os.Chmod(f.Name(), 0755); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "unable to make the entry script executable")
	}

	return f.Name(), nil
}
