package transaction

import (
	"vaultkv/internal/resp"
)

// PropagationTarget is the set of downstream sinks a frame should reach
// (§6 propagation sink contract).
type PropagationTarget uint8

const (
	TargetWAL PropagationTarget = 1 << iota
	TargetReplication
)

// Propagator delivers a command frame to the write-ahead log and/or the
// replication stream. The engine uses it only for the synthetic MULTI
// frame that brackets a batch; each individual queued command is
// propagated by the same per-command hook non-transactional commands use
// (PerCommandPropagator below), so a pure-read EXEC never touches this at
// all.
type Propagator interface {
	Propagate(name string, dbID int, args []string, targets PropagationTarget)
}

// PerCommandPropagator is invoked once per queued command that actually
// executed, mirroring exactly what the server would do for that same
// command outside of a transaction. The engine does not decide whether
// the command was a write; it leaves that to the same descriptor-driven
// logic the non-transactional path already uses.
type PerCommandPropagator func(descriptor Descriptor, args []resp.Value)

// RoleSource answers the questions EXEC needs about server role and
// lifecycle state to apply the read-only-follower gate and to detect a
// role change mid-drain (§4.5 steps 2 and 7).
type RoleSource interface {
	IsLoading() bool
	HasPrimary() bool
	FollowerWritesAllowed() bool
	IsPrimary() bool
	// AppendReplicationFrame appends a raw, already-encoded frame
	// directly to the replication backlog, bypassing normal
	// propagation. Used only to terminate a dangling MULTI when the
	// server flips from primary to follower mid-drain (§4.5 step 7,
	// §9 open question).
	AppendReplicationFrame(data []byte)
}

// MonitorSink fans executed commands out to passive observers (e.g. the
// MONITOR command). EXEC delivers its own invocation, not the queued
// commands, per §4.5 step 8.
type MonitorSink interface {
	Publish(dbID int, argv []string)
}

// ExecFrame carries the information about the EXEC invocation itself
// that the engine needs but does not own: which database it runs
// against, whether the caller is the replication link (exempt from the
// read-only-follower gate), and the argv to hand to the monitor fan-out.
type ExecFrame struct {
	DBID              int
	IsReplicationLink bool
	Argv              []string // the literal ["EXEC"] the client sent
}

// ExecOutcome classifies how an EXEC call resolved (§7).
type ExecOutcome int

const (
	OutcomeExecuted ExecOutcome = iota
	OutcomeAborted
	OutcomeNullBatch
	OutcomeReadOnlyFollower
)

// ExecResult is the result of Engine.Exec.
type ExecResult struct {
	Outcome ExecOutcome
	Results []resp.Value // valid only when Outcome == OutcomeExecuted
	Err     error        // set for OutcomeAborted and OutcomeReadOnlyFollower
}

// Engine is the execution and propagation component of §4.5. One Engine
// serves every client connected to a given server; per-client state lives
// in ClientTxState.
type Engine struct {
	watch    *WatchIndex
	resolver Resolver
	exec     Executor
	prop     Propagator
	perCmd   PerCommandPropagator
	role     RoleSource
	monitor  MonitorSink
}

// Config bundles the collaborators an Engine needs. Propagator, role,
// monitor and perCmd are all optional: a nil Propagator or RoleSource
// degrades gracefully to "never propagate" / "never a read-only
// follower", which is exactly what a single-node, non-replicated server
// wants.
type Config struct {
	Watch      *WatchIndex
	Resolver   Resolver
	Executor   Executor
	Propagator Propagator
	PerCommand PerCommandPropagator
	Role       RoleSource
	Monitor    MonitorSink
}

// NewEngine builds an Engine from its collaborators.
func NewEngine(cfg Config) *Engine {
	w := cfg.Watch
	if w == nil {
		w = NewWatchIndex()
	}
	return &Engine{
		watch:    w,
		resolver: cfg.Resolver,
		exec:     cfg.Executor,
		prop:     cfg.Propagator,
		perCmd:   cfg.PerCommand,
		role:     cfg.Role,
		monitor:  cfg.Monitor,
	}
}

// WatchIndex exposes the underlying index so the store's write path can
// call Touch/TouchOnFlush directly without routing through the engine.
func (e *Engine) WatchIndex() *WatchIndex { return e.watch }

// Multi begins a transaction (§4.4 IDLE -> MULTI -> IN_MULTI).
func (e *Engine) Multi(c *ClientTxState) error {
	if c.inMulti {
		return ErrNestedMulti
	}
	c.inMulti = true
	c.queue = nil
	c.queuedFlags = 0
	c.dirtyExec = false
	return nil
}

// Watch adds keys to c's watch set. WATCH is illegal once a transaction
// has been opened (§4.4 IN_MULTI -> WATCH -> error) but is otherwise
// always accepted, including when c already watches some of the keys
// (§8 L2).
func (e *Engine) Watch(c *ClientTxState, db int, keys ...string) error {
	if c.inMulti {
		return ErrWatchInsideMulti
	}
	for _, key := range keys {
		e.watch.Watch(c, db, key)
	}
	return nil
}

// Unwatch clears every watch c holds, in any state (§4.4 "any -> UNWATCH
// -> same").
func (e *Engine) Unwatch(c *ClientTxState) {
	e.watch.UnwatchAll(c)
}

// QueueCommand buffers a command while c is in MULTI mode. If name
// cannot be resolved or its arity is wrong, DIRTY_EXEC is set and the
// command is not queued; the caller should relay the returned error to
// the client immediately (§3 lifecycle rules, §7.2).
func (e *Engine) QueueCommand(c *ClientTxState, name string, args []resp.Value) error {
	desc, ok := e.resolver.Resolve(name)
	if !ok {
		c.dirtyExec = true
		return &QueueTimeError{Command: name, Reason: "ERR unknown command '" + name + "'"}
	}
	if desc.Arity() >= 0 && len(args) != desc.Arity() {
		c.dirtyExec = true
		return &QueueTimeError{Command: name, Reason: "ERR wrong number of arguments for '" + name + "' command"}
	}

	argsCopy := make([]resp.Value, len(args))
	copy(argsCopy, args)
	c.queue = append(c.queue, QueuedCommand{Descriptor: desc, Args: argsCopy})
	c.queuedFlags |= flagsOf(desc)
	return nil
}

// Discard aborts a buffered transaction (§4.4 IN_MULTI -> DISCARD ->
// IDLE).
func (e *Engine) Discard(c *ClientTxState) error {
	if !c.inMulti {
		return ErrDiscardWithoutMulti
	}
	e.terminalReset(c)
	return nil
}

// ClientGone runs the same cleanup as DISCARD for a client that
// disconnected, regardless of what state it was in (§3 "client
// disconnect executes the same cleanup as DISCARD").
func (e *Engine) ClientGone(c *ClientTxState) {
	e.terminalReset(c)
}

// terminalReset is the common tail of every transition that leaves
// IN_MULTI: clear the queue, clear both dirty bits, and unwatch
// everything (which also clears DIRTY_CAS).
func (e *Engine) terminalReset(c *ClientTxState) {
	c.queue = nil
	c.queuedFlags = 0
	c.inMulti = false
	c.dirtyExec = false
	e.watch.UnwatchAll(c)
}

// Exec runs the §4.5 algorithm. c must be in MULTI mode; callers are
// expected to have already rejected a bare EXEC outside MULTI the same
// way the other transaction-control commands do.
func (e *Engine) Exec(c *ClientTxState, frame ExecFrame) ExecResult {
	if !c.inMulti {
		return ExecResult{Outcome: OutcomeAborted, Err: ErrExecWithoutMulti}
	}

	// Step 1: abort checks, in order.
	if c.dirtyExec {
		e.terminalReset(c)
		e.monitorFanOut(frame)
		return ExecResult{Outcome: OutcomeAborted, Err: ErrExecAbort}
	}
	if c.dirtyCAS.Load() {
		e.terminalReset(c)
		e.monitorFanOut(frame)
		return ExecResult{Outcome: OutcomeNullBatch}
	}

	// Step 2: role/permission gate.
	if e.isReadOnlyFollower() && !frame.IsReplicationLink && c.queuedFlags.HasWrite() {
		e.terminalReset(c)
		e.monitorFanOut(frame)
		return ExecResult{Outcome: OutcomeReadOnlyFollower, Err: ErrReadOnlyFollower}
	}

	// Step 3: pre-execution. The transaction is committing; further
	// mutation of previously-watched keys can no longer cancel it.
	e.watch.UnwatchAll(c)
	commands := c.queue
	c.queue = nil
	c.queuedFlags = 0

	wasPrimary := e.role != nil && e.role.IsPrimary()

	// Steps 4-6: drain.
	results := make([]resp.Value, len(commands))
	mustPropagate := false
	for i, qc := range commands {
		if !mustPropagate && !qc.Descriptor.ReadOnly() && !qc.Descriptor.Admin() {
			if e.prop != nil {
				e.prop.Propagate("MULTI", frame.DBID, nil, TargetWAL|TargetReplication)
			}
			mustPropagate = true
		}

		result, err := e.exec(qc.Descriptor.CommandName(), qc.Args)
		if err != nil {
			results[i] = resp.Value{Type: resp.Error, Str: err.Error()}
			continue
		}
		results[i] = result

		if mustPropagate && !qc.Descriptor.ReadOnly() && !qc.Descriptor.Admin() && e.perCmd != nil {
			e.perCmd(qc.Descriptor, qc.Args)
		}
	}

	c.inMulti = false

	// Step 7: finalize propagation.
	if mustPropagate {
		becameFollower := e.role != nil && wasPrimary && !e.role.IsPrimary()
		if becameFollower {
			// The normal propagation path is already disabled for this
			// client's role, but the backlog has a dangling MULTI from
			// earlier in the drain. Terminate it directly.
			e.role.AppendReplicationFrame(execFrameBytes)
		}
	}

	// Step 8: monitor fan-out.
	e.monitorFanOut(frame)

	return ExecResult{Outcome: OutcomeExecuted, Results: results}
}

func (e *Engine) isReadOnlyFollower() bool {
	if e.role == nil {
		return false
	}
	return !e.role.IsLoading() && e.role.HasPrimary() && !e.role.FollowerWritesAllowed()
}

func (e *Engine) monitorFanOut(frame ExecFrame) {
	if e.monitor == nil {
		return
	}
	if e.role != nil && e.role.IsLoading() {
		return
	}
	e.monitor.Publish(frame.DBID, frame.Argv)
}

// execFrameBytes is the raw RESP encoding of a bare EXEC command, used to
// terminate an already-started MULTI in the replication backlog on a
// role change mid-drain (§6).
var execFrameBytes = []byte("*1\r\n$4\r\nEXEC\r\n")
