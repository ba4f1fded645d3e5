// Package configs provides embedded configuration templates for dwhsync.
//
// Templates are embedded at build time using Go's //go:embed directive,
// so they ship inside the binary and `dwhsync init` works without any
// installed data files.
//
// Template files:
//   - dwhsync.example.yaml: agent settings (watch directory, spreadsheet,
//     poll interval, warehouse path)
//   - user-config.example.yaml: machine-wide settings (database location,
//     logging)
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/dwhsync/config.yaml)
//  3. Agent config (dwhsync.yaml in the working directory)
//  4. Environment variables (DWHSYNC_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
package configs

import _ "embed"

// AgentConfigTemplate is the template for per-agent configuration.
// Created by: `dwhsync init` as dwhsync.yaml in the working directory.
//
//go:embed dwhsync.example.yaml
var AgentConfigTemplate string

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by: `dwhsync init --user` at ~/.config/dwhsync/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
