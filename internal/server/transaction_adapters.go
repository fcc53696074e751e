package server

import (
	"fmt"
	"vaultkv/internal/logger"
	"vaultkv/internal/repl"
	"vaultkv/internal/resp"
	"vaultkv/internal/transaction"
	"strings"
	"sync"
	"time"
)

// replRoleSource answers transaction.Engine's role/lifecycle questions
// using the same replication manager and persistence manager the
// non-transactional path already consults.
type replRoleSource struct {
	s *Server
}

func (r replRoleSource) IsLoading() bool {
	return r.s.persist != nil && r.s.persist.IsLoading()
}

func (r replRoleSource) HasPrimary() bool {
	return r.s.cfg.SlaveOf != ""
}

func (r replRoleSource) FollowerWritesAllowed() bool {
	return false
}

func (r replRoleSource) IsPrimary() bool {
	return r.s.replManager.Role() == repl.RoleMaster
}

func (r replRoleSource) AppendReplicationFrame(data []byte) {
	r.s.replManager.AppendCommand(data)
}

// enginePropagator emits the synthetic MULTI frame that brackets a
// transaction's writes, mirroring exactly how a standalone write command
// reaches the AOF and the replication backlog.
type enginePropagator struct {
	s *Server
}

func (p enginePropagator) Propagate(name string, dbID int, args []string, targets transaction.PropagationTarget) {
	// The engine calls Propagate and the per-command hook in strict drain
	// order; appending to the AOF must happen on that same call path, not
	// off in a goroutine, or concurrent writers race for the AOF lock and
	// the WAL can record a batch's commands out of order (§4.5 / P5).
	if targets&transaction.TargetWAL != 0 && p.s.persist != nil {
		if err := p.s.persist.AppendCommand(name, args); err != nil {
			logger.Error(err)
		}
	}

	if targets&transaction.TargetReplication != 0 {
		p.s.forwardToReplicas(name, respArgsFromStrings(args))
	}
}

// propagateQueuedCommand is the per-command propagation hook EXEC uses
// while draining a transaction's queue. It is the same AOF-append /
// replica-forward pattern the single-command and pipeline paths use for
// a standalone write, applied to one command out of a batch, appended
// synchronously so the AOF preserves the batch's drain order.
func (s *Server) propagateQueuedCommand(d transaction.Descriptor, args []resp.Value) {
	name := d.CommandName()
	strArgs := make([]string, len(args))
	for i, a := range args {
		strArgs[i] = a.Str
	}

	if s.persist != nil {
		if err := s.persist.AppendCommand(name, strArgs); err != nil {
			logger.Error(err)
		}
	}

	s.forwardToReplicas(name, args)
}

func (s *Server) forwardToReplicas(name string, args []resp.Value) {
	if s.replManager.Role() != repl.RoleMaster || s.replManager.Count() == 0 {
		return
	}
	respArray := make([]resp.Value, 1+len(args))
	respArray[0] = resp.Value{Type: resp.BulkString, Str: name}
	copy(respArray[1:], args)

	var buf strings.Builder
	if err := resp.Encode(&buf, resp.Value{Type: resp.Array, Array: respArray}); err == nil {
		s.replManager.AppendCommand([]byte(buf.String()))
	} else {
		logger.Errorf("Failed to encode command for replication: %v", err)
	}
}

func respArgsFromStrings(args []string) []resp.Value {
	out := make([]resp.Value, len(args))
	for i, a := range args {
		out[i] = resp.Value{Type: resp.BulkString, Str: a}
	}
	return out
}

// monitorHub fans out every command EXEC runs to any client that issued
// MONITOR, the same passive-observer feed real Redis exposes.
type monitorHub struct {
	mu       sync.Mutex
	watchers map[*Client]struct{}
}

func newMonitorHub() *monitorHub {
	return &monitorHub{watchers: make(map[*Client]struct{})}
}

func (h *monitorHub) Attach(c *Client) {
	h.mu.Lock()
	h.watchers[c] = struct{}{}
	h.mu.Unlock()
}

func (h *monitorHub) Detach(c *Client) {
	h.mu.Lock()
	delete(h.watchers, c)
	h.mu.Unlock()
}

// Publish implements transaction.MonitorSink.
func (h *monitorHub) Publish(dbID int, argv []string) {
	h.mu.Lock()
	if len(h.watchers) == 0 {
		h.mu.Unlock()
		return
	}
	watchers := make([]*Client, 0, len(h.watchers))
	for c := range h.watchers {
		watchers = append(watchers, c)
	}
	h.mu.Unlock()

	line := formatMonitorLine(dbID, argv)
	for _, c := range watchers {
		if err := c.writeMonitorLine(line); err != nil {
			h.Detach(c)
		}
	}
}

func formatMonitorLine(dbID int, argv []string) []byte {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	ts := float64(time.Now().UnixNano()) / float64(time.Second)
	return []byte(fmt.Sprintf("+%.6f [%d %s] %s\r\n", ts, dbID, "unknown", strings.Join(quoted, " ")))
}
