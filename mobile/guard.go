package mobile

const unknownException = "Unknown exception"

// failureGuard reports a failed call exactly once unless it is released. It
// is armed on creation and meant to be fired by a deferred call, so that it
// runs on error returns and while a panic unwinds alike.
type failureGuard struct {
	report   func(message string)
	fallback func() string
	message  string
	armed    bool
}

// newFailureGuard arms a guard. A nil report disables it; fallback provides
// the message when none was captured and may be nil.
func newFailureGuard(report func(message string), fallback func() string) *failureGuard {
	return &failureGuard{
		report:   report,
		fallback: fallback,
		armed:    true,
	}
}

// capture records the message of the error being propagated
func (g *failureGuard) capture(message string) {
	g.message = message
}

// release disarms the guard on the success path
func (g *failureGuard) release() {
	g.armed = false
}

func (g *failureGuard) fire() {
	if !g.armed {
		return
	}
	g.armed = false
	if g.report == nil {
		return
	}
	msg := g.message
	if msg == "" && g.fallback != nil {
		msg = g.fallback()
	}
	if msg == "" {
		msg = unknownException
	}
	g.report(msg)
}
