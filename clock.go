// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package rotsim

// A Poller is notified each time virtual time advances.
//
type Poller interface {
	Poll()
}

// Clock is a virtual time source. Time is counted in ticks and only moves
// forward when the owner calls Advance or IncrementAndPoll.
//
type Clock struct {
	now     uint64
	targets []Poller
}

// NewClock returns a new Clock at tick 0.
//
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current tick count.
//
func (c *Clock) Now() uint64 {
	return c.now
}

// Attach adds p to the list of targets polled by Advance. Targets are polled in
// the order they were attached.
//
func (c *Clock) Attach(p Poller) {
	c.targets = append(c.targets, p)
}

// Advance moves time forward by n ticks, then polls every attached target
// once.
//
func (c *Clock) Advance(n uint64) {
	c.now += n
	for _, p := range c.targets {
		p.Poll()
	}
}

// IncrementAndPoll moves time forward by n ticks, polls p once, then polls
// every attached target once. It lets tests drive a peripheral that is not
// attached to the clock.
//
func (c *Clock) IncrementAndPoll(n uint64, p Poller) {
	c.now += n
	p.Poll()
	for _, t := range c.targets {
		t.Poll()
	}
}

// A TimerAction is a pending one-shot notification created by
// Timer.SchedulePollIn.
//
type TimerAction struct {
	due uint64
}

// Due returns the tick at which the action fires.
//
func (a *TimerAction) Due() uint64 {
	return a.due
}

// Timer schedules one-shot actions relative to a Clock.
//
type Timer struct {
	clk *Clock
}

// NewTimer returns a Timer bound to clock c.
//
func NewTimer(c *Clock) *Timer {
	return &Timer{clk: c}
}

// SchedulePollIn returns an action that fires once the clock has advanced by
// at least n ticks from now.
//
func (t *Timer) SchedulePollIn(n uint64) *TimerAction {
	return &TimerAction{due: t.clk.now + n}
}

// Fired reports whether the action stored in slot is due. A due action is
// consumed: *slot is set to nil so that the same action never fires twice.
//
// The typical use in a Poll hook is:
//
//	if p.timer.Fired(&p.opComplete) {
//		// complete the operation
//	}
//
func (t *Timer) Fired(slot **TimerAction) bool {
	a := *slot
	if a == nil || t.clk.now < a.due {
		return false
	}
	*slot = nil
	return true
}
