package command

import "git.home.luguber.info/inful/streakd/internal/streak"

// Command names understood by the façade.
const (
	CmdDone        = "done"
	CmdAdd         = "add"
	CmdRemove      = "remove"
	CmdFreezeCheck = "freeze-check"
	CmdSummary     = "summary"
	CmdLeft        = "left"
)

// Result messages and reasons.
const (
	MsgUpdated         = "updated"
	MsgAlreadyComplete = "already complete"
	MsgAdded           = "added"
	MsgRemoved         = "removed"
	MsgAllComplete     = "all complete"

	ReasonNotFound       = "not found"
	ReasonDuplicate      = "duplicate"
	ReasonEmptyName      = "empty name"
	ReasonUnknownCommand = "unknown command"
)

// Result is the Ok/Fail variant returned to the adapter. Exactly one of
// Message (OK) or Reason (not OK) is set; the typed fields carry data for
// rendering.
type Result struct {
	Command  string `json:"command"`
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Activity string `json:"activity,omitempty"`

	Progress      *streak.Activity `json:"progress,omitempty"`
	FreezeCredits *int             `json:"freezeCredits,omitempty"`
	Snapshot      *streak.Snapshot `json:"snapshot,omitempty"`
	Incomplete    []string         `json:"incomplete,omitempty"`
}

// Ok builds a successful result.
func Ok(cmd, message string) Result {
	return Result{Command: cmd, OK: true, Message: message}
}

// Fail builds a rejected result.
func Fail(cmd, reason string) Result {
	return Result{Command: cmd, Reason: reason}
}
