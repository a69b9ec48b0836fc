package commands

import (
	"context"

	"git.home.luguber.info/inful/streakd/internal/render"
	"git.home.luguber.info/inful/streakd/internal/rollover"
)

// RolloverCmd implements the 'rollover' command. A manual rollover ignores
// the minimum gap since the previous run.
type RolloverCmd struct{}

func (r *RolloverCmd) Run(g *Global, root *CLI) error {
	ctx := context.Background()
	_, svc, err := openServices(ctx, root)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	out, err := svc.Engine.Run(ctx, rollover.TriggerManual)
	if err != nil {
		return err
	}
	return render.Outcome(g.out(), out)
}
