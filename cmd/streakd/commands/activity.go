package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/streakd/internal/command"
	"git.home.luguber.info/inful/streakd/internal/render"
)

// DoneCmd implements the 'done' command.
type DoneCmd struct {
	Name string `arg:"" help:"Activity name"`
}

func (c *DoneCmd) Run(g *Global, root *CLI) error {
	return apply(g, root, command.CmdDone, c.Name)
}

// AddCmd implements the 'add' command.
type AddCmd struct {
	Name string `arg:"" help:"Activity name"`
}

func (c *AddCmd) Run(g *Global, root *CLI) error {
	return apply(g, root, command.CmdAdd, c.Name)
}

// RemoveCmd implements the 'remove' command.
type RemoveCmd struct {
	Name string `arg:"" help:"Activity name"`
}

func (c *RemoveCmd) Run(g *Global, root *CLI) error {
	return apply(g, root, command.CmdRemove, c.Name)
}

// FreezeCheckCmd implements the 'freeze-check' command.
type FreezeCheckCmd struct{}

func (c *FreezeCheckCmd) Run(g *Global, root *CLI) error {
	return apply(g, root, command.CmdFreezeCheck, "")
}

// SummaryCmd implements the 'summary' command.
type SummaryCmd struct{}

func (c *SummaryCmd) Run(g *Global, root *CLI) error {
	return apply(g, root, command.CmdSummary, "")
}

// LeftCmd implements the 'left' command.
type LeftCmd struct{}

func (c *LeftCmd) Run(g *Global, root *CLI) error {
	return apply(g, root, command.CmdLeft, "")
}

// SayCmd implements the 'say' command: it feeds one chat line through the
// same parser a chat adapter would use.
type SayCmd struct {
	Line    string `arg:"" help:"Chat line, e.g. '!done read'"`
	Channel string `help:"Channel the line was sent from"`
}

func (c *SayCmd) Run(g *Global, root *CLI) error {
	ctx := context.Background()
	cfg, svc, err := openServices(ctx, root)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	if !svc.Facade.AllowChannel(c.Channel) {
		_, _ = fmt.Fprintf(g.out(), "ignored: channel %q is not the command channel\n", c.Channel)
		return nil
	}
	parsed, ok := command.ParseLine(cfg.Commands.Prefix, c.Line)
	if !ok {
		_, _ = fmt.Fprintln(g.out(), "ignored: not a command")
		return nil
	}
	res, err := svc.Facade.Apply(ctx, parsed.Name, parsed.Arg)
	if err != nil {
		return err
	}
	return render.Result(g.out(), res)
}

func apply(g *Global, root *CLI, name, arg string) error {
	ctx := context.Background()
	_, svc, err := openServices(ctx, root)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	res, err := svc.Facade.Apply(ctx, name, arg)
	if err != nil {
		return err
	}
	return render.Result(g.out(), res)
}
