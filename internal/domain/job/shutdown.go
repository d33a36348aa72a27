package job

import "sync"

// Signal is a one-shot flag that marks the start of a graceful shutdown.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal returns an untriggered signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Trigger sets the signal. Calling it more than once is a no-op.
func (s *Signal) Trigger() {
	s.once.Do(func() { close(s.ch) })
}

// Triggered reports whether Trigger has been called.
func (s *Signal) Triggered() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done is closed once the signal is triggered.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}
