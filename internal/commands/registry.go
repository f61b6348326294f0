// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat prompt.
package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command describes a slash command the prompt understands.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Kind is what Parse reports when this command is entered
	Kind Kind

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/model <name>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Hidden commands don't appear in help
	Hidden bool
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	// Name of the argument
	Name string

	// Required indicates if the argument must be provided
	Required bool

	// Type determines completion behavior
	Type ArgType

	// Description explains the argument
	Description string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeModel                 // Model name from the server
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands. Lookups are case-insensitive.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[strings.ToLower(cmd.Name)] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[strings.ToLower(alias)] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Name < cmds[j].Name
	})
	return cmds
}

// Visible returns the commands shown in help, sorted by name.
func (r *Registry) Visible() []*Command {
	all := r.All()
	out := all[:0]
	for _, cmd := range all {
		if !cmd.Hidden {
			out = append(out, cmd)
		}
	}
	return out
}

// Names returns every name and alias, for suggestions.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands)+len(r.aliases))
	for _, cmd := range r.commands {
		names = append(names, cmd.Name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Kind:        KindHelp,
		Description: "Show available commands",
	})

	r.Register(&Command{
		Name:        "/exit",
		Aliases:     []string{"/quit", "/q"},
		Kind:        KindExit,
		Description: "Exit rigchat",
	})

	r.Register(&Command{
		Name:        "/reset",
		Aliases:     []string{"/clear"},
		Kind:        KindReset,
		Description: "Clear the conversation history",
	})

	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Kind:        KindModel,
		Description: "Switch to a different model",
		Usage:       "/model <name>",
		Args: []ArgDef{
			{Name: "name", Required: true, Type: ArgTypeModel, Description: "Model name, e.g. llama3.2 or mistral:7b"},
		},
	})

	r.Register(&Command{
		Name:        "/models",
		Kind:        KindModels,
		Description: "List models available on the server",
	})

	r.Register(&Command{
		Name:        "/info",
		Aliases:     []string{"/i"},
		Kind:        KindInfo,
		Description: "Show details of the current model",
	})
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion represents a single completion option.
type Completion struct {
	// Value to insert
	Value string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int
}
