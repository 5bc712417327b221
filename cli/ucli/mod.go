// Package ucli implements the cli builder on top of urfave/cli.
//
// The application and its commands share a single node type: the root node
// holds the global flags and the optional default action, and every node
// converts its children recursively when the application is built.
//
// Documentation Last Review: 18.10.2026
package ucli

import (
	"fmt"

	"github.com/jmt-lab/bottlerocket/cli"
	urfave "github.com/urfave/cli/v2"
)

// Builder builds a urfave application.
//
// - implements cli.Builder
type Builder struct {
	root  *node
	usage string
}

// NewBuilder returns a builder for an application named after the binary.
// The action runs when no command is given and can be nil. The flags are
// available to every command.
func NewBuilder(name, usage string, action cli.Action, flags ...cli.Flag) cli.Builder {
	root := &node{name: name, action: action}
	root.SetFlags(flags...)

	return &Builder{
		root:  root,
		usage: usage,
	}
}

// SetCommand implements cli.Builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	return b.root.SetSubCommand(name)
}

// Build implements cli.Builder.
func (b *Builder) Build() cli.Application {
	app := &urfave.App{
		Name:     b.root.name,
		Usage:    b.usage,
		Flags:    b.root.flags,
		Action:   wrap(b.root.action),
		Commands: b.root.commands(),
	}

	app.Setup()

	return app
}

// node is either the application or one of its commands.
//
// - implements cli.CommandBuilder
type node struct {
	name      string
	usage     string
	argsUsage string
	action    cli.Action
	flags     []urfave.Flag
	children  []*node
}

// SetDescription implements cli.CommandBuilder.
func (n *node) SetDescription(value string) {
	n.usage = value
}

// SetArgsUsage implements cli.CommandBuilder.
func (n *node) SetArgsUsage(value string) {
	n.argsUsage = value
}

// SetFlags implements cli.CommandBuilder. It panics if a flag has a type the
// builder does not know.
func (n *node) SetFlags(flags ...cli.Flag) {
	n.flags = make([]urfave.Flag, 0, len(flags))

	for _, f := range flags {
		n.flags = append(n.flags, convertFlag(f))
	}
}

// SetAction implements cli.CommandBuilder.
func (n *node) SetAction(action cli.Action) {
	n.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (n *node) SetSubCommand(name string) cli.CommandBuilder {
	child := &node{name: name}
	n.children = append(n.children, child)

	return child
}

func (n *node) commands() []*urfave.Command {
	res := make([]*urfave.Command, 0, len(n.children))

	for _, child := range n.children {
		res = append(res, &urfave.Command{
			Name:        child.name,
			Usage:       child.usage,
			ArgsUsage:   child.argsUsage,
			Flags:       child.flags,
			Action:      wrap(child.action),
			Subcommands: child.commands(),
		})
	}

	return res
}

func convertFlag(f cli.Flag) urfave.Flag {
	switch e := f.(type) {
	case cli.StringFlag:
		return &urfave.StringFlag{
			Name:     e.Name,
			Aliases:  e.Aliases,
			EnvVars:  e.EnvVars,
			Usage:    e.Usage,
			Required: e.Required,
			Value:    e.Value,
		}
	case cli.PathFlag:
		return &urfave.PathFlag{
			Name:     e.Name,
			Aliases:  e.Aliases,
			EnvVars:  e.EnvVars,
			Usage:    e.Usage,
			Required: e.Required,
			Value:    e.Value,
		}
	case cli.BoolFlag:
		return &urfave.BoolFlag{
			Name:    e.Name,
			EnvVars: e.EnvVars,
			Usage:   e.Usage,
			Value:   e.Value,
		}
	}

	panic(fmt.Sprintf("flag type '%T' not supported", f))
}

// wrap returns the urfave form of the action, or nil.
func wrap(action cli.Action) urfave.ActionFunc {
	if action == nil {
		return nil
	}

	return func(ctx *urfave.Context) error {
		return action(context{Context: ctx})
	}
}

// context reads the flags and the positional arguments of a urfave
// invocation. Lookups fall back to the flags of the parent commands.
//
// - implements cli.Flags
type context struct {
	*urfave.Context
}

// Args implements cli.Flags.
func (c context) Args() []string {
	return c.Context.Args().Slice()
}
