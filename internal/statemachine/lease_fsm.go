package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/nyumba/nyumba-api/internal/models"
)

// LeaseFSM wraps a lease with its lifecycle state machine
type LeaseFSM struct {
	lease *models.Lease
	fsm   *fsm.FSM
}

// NewLeaseFSM creates a new lease state machine
func NewLeaseFSM(lease *models.Lease) *LeaseFSM {
	lfsm := &LeaseFSM{
		lease: lease,
	}

	lfsm.fsm = fsm.NewFSM(
		lease.Status,
		fsm.Events{
			// pending → active
			{Name: "activate", Src: []string{models.LeaseStatusPending}, Dst: models.LeaseStatusActive},

			// pending/active → terminated
			{Name: "terminate", Src: []string{models.LeaseStatusPending, models.LeaseStatusActive}, Dst: models.LeaseStatusTerminated},

			// active → expired (archived on renewal-as-new-lease)
			{Name: "expire", Src: []string{models.LeaseStatusActive}, Dst: models.LeaseStatusExpired},
		},
		fsm.Callbacks{},
	)

	return lfsm
}

// Activate transitions lease to active state
func (l *LeaseFSM) Activate(ctx context.Context) error {
	if !l.lease.MayActivate() {
		return fmt.Errorf("lease cannot be activated in current state: %s", l.lease.Status)
	}

	if err := l.fsm.Event(ctx, "activate"); err != nil {
		return fmt.Errorf("failed to activate lease: %w", err)
	}

	l.lease.Status = l.fsm.Current()
	return nil
}

// Terminate transitions lease to terminated state
func (l *LeaseFSM) Terminate(ctx context.Context) error {
	if !l.lease.MayTerminate() {
		return fmt.Errorf("lease cannot be terminated in current state: %s", l.lease.Status)
	}

	if err := l.fsm.Event(ctx, "terminate"); err != nil {
		return fmt.Errorf("failed to terminate lease: %w", err)
	}

	l.lease.Status = l.fsm.Current()
	return nil
}

// Expire archives the lease when a renewal supersedes it
func (l *LeaseFSM) Expire(ctx context.Context) error {
	if !l.lease.MayExpire() {
		return fmt.Errorf("lease cannot be expired in current state: %s", l.lease.Status)
	}

	if err := l.fsm.Event(ctx, "expire"); err != nil {
		return fmt.Errorf("failed to expire lease: %w", err)
	}

	l.lease.Status = l.fsm.Current()
	return nil
}

// Current returns the current state
func (l *LeaseFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LeaseFSM) Can(event string) bool {
	return l.fsm.Can(event)
}
