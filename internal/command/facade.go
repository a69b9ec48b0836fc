// Package command maps chat-style commands onto registry operations.
package command

import (
	"context"
	"log/slog"
	"strconv"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/metrics"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// Facade is a stateless dispatcher over a Registry. Validation failures come
// back as Fail results with a nil error; only store failures return an error.
type Facade struct {
	registry  *streak.Registry
	recorder  metrics.Recorder
	channelID string
}

// Option configures a Facade.
type Option func(*Facade)

// WithRecorder counts every command by result.
func WithRecorder(r metrics.Recorder) Option { return func(f *Facade) { f.recorder = r } }

// WithChannel restricts commands to one designated channel.
func WithChannel(id string) Option { return func(f *Facade) { f.channelID = id } }

// NewFacade creates a façade over registry.
func NewFacade(registry *streak.Registry, opts ...Option) *Facade {
	f := &Facade{registry: registry, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AllowChannel reports whether commands from channel id are accepted. An
// empty designated channel accepts all.
func (f *Facade) AllowChannel(id string) bool {
	return f.channelID == "" || f.channelID == id
}

// Apply runs one command with its single argument.
func (f *Facade) Apply(ctx context.Context, name, arg string) (Result, error) {
	res, err := f.dispatch(ctx, name, arg)
	switch {
	case err != nil:
		f.recorder.IncCommand(name, metrics.ResultError)
		slog.Error("Command failed", logfields.Command(name), logfields.Activity(arg), logfields.Error(err))
	case res.OK:
		f.recorder.IncCommand(name, metrics.ResultOK)
	default:
		f.recorder.IncCommand(name, metrics.ResultRejected)
		slog.Debug("Command rejected", logfields.Command(name), logfields.Result(res.Reason))
	}
	return res, err
}

func (f *Facade) dispatch(ctx context.Context, name, arg string) (Result, error) {
	switch name {
	case CmdDone:
		return f.done(ctx, arg)
	case CmdAdd:
		return f.add(ctx, arg)
	case CmdRemove:
		return f.remove(ctx, arg)
	case CmdFreezeCheck:
		return f.freezeCheck(ctx)
	case CmdSummary:
		return f.summary(ctx)
	case CmdLeft:
		return f.left(ctx)
	default:
		return Fail(name, ReasonUnknownCommand), nil
	}
}

func (f *Facade) done(ctx context.Context, arg string) (Result, error) {
	name := streak.NormalizeName(arg)
	if name == "" {
		return Fail(CmdDone, ReasonEmptyName), nil
	}
	pr, err := f.registry.RecordProgress(ctx, name)
	if err != nil {
		return rejectOrError(CmdDone, name, err)
	}
	msg := MsgUpdated
	if pr.Status == streak.ProgressAlreadyComplete {
		msg = MsgAlreadyComplete
	}
	res := Ok(CmdDone, msg)
	res.Activity = name
	res.Progress = &pr.Activity
	return res, nil
}

func (f *Facade) add(ctx context.Context, arg string) (Result, error) {
	name := streak.NormalizeName(arg)
	if err := f.registry.AddActivity(ctx, name); err != nil {
		return rejectOrError(CmdAdd, name, err)
	}
	res := Ok(CmdAdd, MsgAdded)
	res.Activity = name
	return res, nil
}

func (f *Facade) remove(ctx context.Context, arg string) (Result, error) {
	name := streak.NormalizeName(arg)
	if name == "" {
		return Fail(CmdRemove, ReasonEmptyName), nil
	}
	if err := f.registry.RemoveActivity(ctx, name); err != nil {
		return rejectOrError(CmdRemove, name, err)
	}
	res := Ok(CmdRemove, MsgRemoved)
	res.Activity = name
	return res, nil
}

func (f *Facade) freezeCheck(ctx context.Context) (Result, error) {
	n, err := f.registry.FreezeBalance(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Ok(CmdFreezeCheck, strconv.Itoa(n))
	res.FreezeCredits = &n
	return res, nil
}

func (f *Facade) summary(ctx context.Context) (Result, error) {
	snap, err := f.registry.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Ok(CmdSummary, strconv.Itoa(snap.CompletedCount)+"/"+strconv.Itoa(snap.MasterCount))
	res.Snapshot = &snap
	return res, nil
}

func (f *Facade) left(ctx context.Context) (Result, error) {
	snap, err := f.registry.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	incomplete := snap.Incomplete()
	if len(incomplete) == 0 {
		return Ok(CmdLeft, MsgAllComplete), nil
	}
	res := Ok(CmdLeft, strconv.Itoa(len(incomplete))+" left")
	res.Incomplete = incomplete
	return res, nil
}

// rejectOrError turns validation errors into Fail results and passes
// everything else through.
func rejectOrError(cmd, name string, err error) (Result, error) {
	var reason string
	switch serrors.GetCode(err) {
	case serrors.CodeActivityNotFound:
		reason = ReasonNotFound
	case serrors.CodeDuplicateActivity:
		reason = ReasonDuplicate
	case serrors.CodeEmptyName:
		reason = ReasonEmptyName
	default:
		return Result{}, err
	}
	res := Fail(cmd, reason)
	res.Activity = name
	return res, nil
}
