// file: cmd/server/commands.go
package main

import (
	"flag"
	"fmt"
)

// Command is one CLI subcommand: a name, a description for help text, and
// the function that runs it. This repo keeps a hand-rolled command table
// rather than introducing a flag/cobra dependency (SPEC_FULL.md "AMBIENT
// STACK").
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
}

// RegisterCommands returns every CLI subcommand this binary supports.
func RegisterCommands() map[string]Command {
	return map[string]Command{
		"serve": {
			Name:        "serve",
			Description: "Start the MCP server (stdio, or HTTP/SSE per config)",
			Run:         serveCommand,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Run:         versionCommand,
		},
		"help": {
			Name:        "help",
			Description: "Show help for commands",
			Run:         helpCommand,
		},
	}
}

func versionCommand(_ []string) error {
	printVersion()
	return nil
}

func helpCommand(args []string) error {
	fs := flag.NewFlagSet("help", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("fs.Parse: %w", err)
	}

	cmds := RegisterCommands()
	cmdName := ""
	if fs.NArg() > 0 {
		cmdName = fs.Arg(0)
	}

	if cmdName != "" {
		cmd, ok := cmds[cmdName]
		if !ok {
			return fmt.Errorf("unknown command: %s", cmdName)
		}
		fmt.Printf("Command: %s\n", cmd.Name)
		fmt.Printf("Description: %s\n", cmd.Description)
		if cmdName == "serve" {
			fmt.Println("\nUsage:")
			fmt.Println("  mcpcore serve [options]")
			fmt.Println("\nOptions:")
			fmt.Println("  -config string   Path to configuration file")
			fmt.Println("  -debug           Enable debug logging")
		}
		return nil
	}

	fmt.Println("mcpcore - Model Context Protocol reference server")
	fmt.Println("\nUsage:")
	fmt.Println("  mcpcore [command] [options]")
	fmt.Println("\nAvailable Commands:")
	for _, cmd := range cmds {
		fmt.Printf("  %-10s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nUse 'mcpcore help [command]' for more information about a command.")
	return nil
}
