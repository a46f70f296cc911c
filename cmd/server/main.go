// Package main implements the mcpcore CLI: a reference MCP server exposing
// the example tool/prompt/resource set spec.md §8's scenarios exercise,
// served over stdio or HTTP/SSE.
// file: cmd/server/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Version information, populated at build time via -ldflags.
var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

func main() {
	commands := RegisterCommands()

	if len(os.Args) < 2 {
		if err := commands["help"].Run(nil); err != nil {
			fmt.Fprintf(os.Stderr, "mcpcore: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cmdName := os.Args[1]
	if cmdName == "-v" || cmdName == "--version" {
		printVersion()
		return
	}

	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Printf("Unknown command: %s\n\n", cmdName)
		_ = commands["help"].Run(nil)
		os.Exit(1)
	}

	if err := cmd.Run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "mcpcore: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("mcpcore\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", commitHash)
	fmt.Printf("Built:      %s\n", buildDate)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// findConfigFile searches standard locations for a config file when the
// caller didn't specify one, falling back to the specified (possibly
// nonexistent) path so the caller can report a proper error.
func findConfigFile(specifiedPath string) string {
	if specifiedPath != "" {
		if _, err := os.Stat(specifiedPath); err == nil {
			return specifiedPath
		}
		if !strings.ContainsAny(specifiedPath, `/\`) {
			configsPath := filepath.Join("configs", specifiedPath)
			if _, err := os.Stat(configsPath); err == nil {
				return configsPath
			}
		}
		return specifiedPath
	}

	standardPaths := []string{
		"config.yaml",
		"configs/config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "mcpcore", "config.yaml"),
		"/etc/mcpcore/config.yaml",
	}
	for _, path := range standardPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
