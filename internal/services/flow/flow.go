// Package flow sequences the confirm-dialog lifecycle as a small state
// machine. Transitions are guarded: an action arriving in the wrong phase is
// rejected with an error instead of racing a timer.
package flow

import (
	"fmt"
	"sync"
	"time"
)

// Phase is one named state of the confirm flow
type Phase int

const (
	Idle Phase = iota
	Entering
	AwaitingConfirm
	Processing
	Exiting
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Entering:
		return "entering"
	case AwaitingConfirm:
		return "awaiting_confirm"
	case Processing:
		return "processing"
	case Exiting:
		return "exiting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrInvalidTransition reports an action attempted in the wrong phase
type ErrInvalidTransition struct {
	Action string
	From   Phase
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

// Durations configures how long each animated phase lasts
type Durations struct {
	Enter time.Duration
	Exit  time.Duration
}

// DefaultDurations matches the animation timings of the confirm dialog
func DefaultDurations() Durations {
	return Durations{
		Enter: 300 * time.Millisecond,
		Exit:  250 * time.Millisecond,
	}
}

// ConfirmFlow drives the modal confirm lifecycle:
//
//	Idle -> Entering -> AwaitingConfirm -> Processing -> Exiting -> Idle
//
// Dismiss short-circuits from AwaitingConfirm straight to Exiting. All phase
// changes are reported through the OnChange callback.
type ConfirmFlow struct {
	mu        sync.Mutex
	phase     Phase
	durations Durations
	scheduler Scheduler
	cancel    func()

	// OnChange, when set, is invoked after every phase change with the new
	// phase. Called without the internal lock held.
	OnChange func(Phase)
}

// New creates a flow in the Idle phase
func New(scheduler Scheduler, durations Durations) *ConfirmFlow {
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	return &ConfirmFlow{
		phase:     Idle,
		durations: durations,
		scheduler: scheduler,
	}
}

// Phase returns the current phase
func (f *ConfirmFlow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Open starts the enter animation. Valid only from Idle.
func (f *ConfirmFlow) Open() error {
	f.mu.Lock()
	if f.phase != Idle {
		defer f.mu.Unlock()
		return &ErrInvalidTransition{Action: "open", From: f.phase}
	}
	f.setPhaseLocked(Entering)
	f.cancel = f.scheduler.After(f.durations.Enter, func() {
		f.mu.Lock()
		if f.phase != Entering {
			f.mu.Unlock()
			return
		}
		f.setPhaseLocked(AwaitingConfirm)
		f.notifyUnlock()
	})
	f.notifyUnlock()
	return nil
}

// Confirm accepts the dialog and moves to Processing. Valid only from
// AwaitingConfirm; a confirm racing a dismiss loses cleanly.
func (f *ConfirmFlow) Confirm() error {
	f.mu.Lock()
	if f.phase != AwaitingConfirm {
		defer f.mu.Unlock()
		return &ErrInvalidTransition{Action: "confirm", From: f.phase}
	}
	f.setPhaseLocked(Processing)
	f.notifyUnlock()
	return nil
}

// Finish completes processing and starts the exit animation. Valid only from
// Processing.
func (f *ConfirmFlow) Finish() error {
	f.mu.Lock()
	if f.phase != Processing {
		defer f.mu.Unlock()
		return &ErrInvalidTransition{Action: "finish", From: f.phase}
	}
	f.beginExitLocked()
	f.notifyUnlock()
	return nil
}

// Dismiss closes the dialog without confirming. Valid from Entering and
// AwaitingConfirm; dismissing mid-enter cancels the pending enter timer.
func (f *ConfirmFlow) Dismiss() error {
	f.mu.Lock()
	if f.phase != Entering && f.phase != AwaitingConfirm {
		defer f.mu.Unlock()
		return &ErrInvalidTransition{Action: "dismiss", From: f.phase}
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.beginExitLocked()
	f.notifyUnlock()
	return nil
}

func (f *ConfirmFlow) beginExitLocked() {
	f.setPhaseLocked(Exiting)
	f.cancel = f.scheduler.After(f.durations.Exit, func() {
		f.mu.Lock()
		if f.phase != Exiting {
			f.mu.Unlock()
			return
		}
		f.setPhaseLocked(Idle)
		f.notifyUnlock()
	})
}

func (f *ConfirmFlow) setPhaseLocked(p Phase) {
	f.phase = p
}

// notifyUnlock releases the lock and then fires OnChange with the phase set
// while it was held
func (f *ConfirmFlow) notifyUnlock() {
	phase := f.phase
	onChange := f.OnChange
	f.mu.Unlock()
	if onChange != nil {
		onChange(phase)
	}
}
