package transaction

import "errors"

// State errors (§7.1): client misuse of the transaction commands. These
// never change state and are never propagated.
var (
	ErrNestedMulti         = errors.New("ERR MULTI calls can not be nested")
	ErrExecWithoutMulti    = errors.New("ERR EXEC without MULTI")
	ErrDiscardWithoutMulti = errors.New("ERR DISCARD without MULTI")
	ErrWatchInsideMulti    = errors.New("ERR WATCH inside MULTI is not allowed")
)

// ErrExecAbort is returned when EXEC is rejected because a queuing-time
// error set DIRTY_EXEC (§7.2).
var ErrExecAbort = errors.New("EXECABORT Transaction discarded because of previous errors.")

// ErrReadOnlyFollower is returned when EXEC would perform a write while
// the server is a read-only follower (§7.4).
var ErrReadOnlyFollower = errors.New("READONLY You can't write against a read only replica.")

// QueueTimeError reports the two queue-time rejection causes (unknown
// command, wrong arity) that set DIRTY_EXEC (§3 lifecycle rules, §7.2). It
// carries the rejected command's name, and its Reason matches the
// dispatcher's own error text.
type QueueTimeError struct {
	Command string
	Reason  string
}

func (e *QueueTimeError) Error() string { return e.Reason }
