// Package render turns command results and rollover outcomes into chat text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/streakd/internal/command"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// Result writes a command result.
func Result(w io.Writer, res command.Result) error {
	if !res.OK {
		if res.Activity != "" {
			_, err := fmt.Fprintf(w, "%s %s: %s\n", red("✗"), res.Activity, res.Reason)
			return err
		}
		_, err := fmt.Fprintf(w, "%s %s\n", red("✗"), res.Reason)
		return err
	}

	switch res.Command {
	case command.CmdDone:
		if res.Progress == nil {
			break
		}
		mark := yellow("●")
		if res.Progress.Complete() {
			mark = green("✓")
		}
		_, err := fmt.Fprintf(w, "%s %s %s (%d/%d)\n", mark, res.Activity, res.Message,
			res.Progress.DailyProgress, res.Progress.Aim)
		return err
	case command.CmdFreezeCheck:
		_, err := fmt.Fprintf(w, "Freeze credits: %s\n", cyan(res.Message))
		return err
	case command.CmdSummary:
		if res.Snapshot != nil {
			return Snapshot(w, *res.Snapshot)
		}
	case command.CmdLeft:
		if len(res.Incomplete) == 0 {
			_, err := fmt.Fprintf(w, "%s %s\n", green("✓"), res.Message)
			return err
		}
		_, err := fmt.Fprintf(w, "Left today: %s\n", strings.Join(res.Incomplete, ", "))
		return err
	}

	if res.Activity != "" {
		_, err := fmt.Fprintf(w, "%s %s %s\n", green("✓"), res.Activity, res.Message)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", green("✓"), res.Message)
	return err
}

// Snapshot writes the per-activity summary.
func Snapshot(w io.Writer, snap streak.Snapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", cyan(fmt.Sprintf("Streaks %d/%d complete", snap.CompletedCount, snap.MasterCount)))
	if len(snap.Activities) == 0 {
		fmt.Fprintf(&b, "  %s\n", gray("No activities"))
	}
	for _, a := range snap.Activities {
		mark := gray("○")
		if a.Complete {
			mark = green("✓")
		}
		fmt.Fprintf(&b, "  %s %-20s %d/%d\n", mark, a.Name, a.DailyProgress, a.Aim)
	}
	fmt.Fprintf(&b, "Freeze credits: %d\n", snap.FreezeCredits)
	if !snap.LastRollover.IsZero() {
		fmt.Fprintf(&b, "%s\n", gray("Last rollover: "+snap.LastRollover.Format("2006-01-02 15:04 MST")))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Outcome writes the announcement for a rollover.
func Outcome(w io.Writer, out *streak.Outcome) error {
	var b strings.Builder
	switch {
	case out.Skipped:
		fmt.Fprintf(&b, "%s\n", gray("Rollover skipped: the previous one ran too recently."))
	case out.Escalated:
		fmt.Fprintf(&b, "%s\n", green(fmt.Sprintf("Perfect day! %d/%d complete, every aim goes up by one.",
			out.CompletedCount, out.RequiredCount)))
		if out.FreezeGranted {
			fmt.Fprintf(&b, "%s\n", cyan("You earned a freeze credit."))
		}
	case out.FreezeConsumed > 0:
		fmt.Fprintf(&b, "%s\n", yellow(fmt.Sprintf("%d/%d complete. %d freeze credit(s) used to save the streak.",
			out.CompletedCount, out.RequiredCount, out.FreezeConsumed)))
	default:
		fmt.Fprintf(&b, "%s\n", red(fmt.Sprintf("%d/%d complete. Streak reset for: %s",
			out.CompletedCount, out.RequiredCount, strings.Join(out.ResetActivities, ", "))))
	}
	if !out.Skipped {
		fmt.Fprintf(&b, "Freeze credits: %d\n", out.FreezeCredits)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
