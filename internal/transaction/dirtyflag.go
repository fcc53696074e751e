package transaction

import "sync/atomic"

// dirtyFlag is a boolean that can be set by a watcher's writer goroutine
// and read by the watching client's own goroutine without a shared lock.
type dirtyFlag struct {
	v atomic.Bool
}

func (d *dirtyFlag) Set()       { d.v.Store(true) }
func (d *dirtyFlag) Clear()     { d.v.Store(false) }
func (d *dirtyFlag) Load() bool { return d.v.Load() }
