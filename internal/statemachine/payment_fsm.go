package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/nyumba/nyumba-api/internal/models"
)

// PaymentFSM wraps a payment with its state machine. A payment leaves
// pending exactly once, for either successful or failed.
type PaymentFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment state machine
func NewPaymentFSM(payment *models.Payment) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// pending → successful
			{Name: "succeed", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusSuccessful},

			// pending → failed
			{Name: "fail", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusFailed},

			// successful → reversed (gateway-side reversal of the full amount)
			{Name: "reverse", Src: []string{models.PaymentStatusSuccessful}, Dst: models.PaymentStatusReversed},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Succeed transitions payment to successful state
func (p *PaymentFSM) Succeed(ctx context.Context) error {
	if !p.payment.MaySucceed() {
		return fmt.Errorf("payment cannot succeed in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "succeed"); err != nil {
		return fmt.Errorf("failed to mark payment successful: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Fail transitions payment to failed state
func (p *PaymentFSM) Fail(ctx context.Context) error {
	if !p.payment.MayFail() {
		return fmt.Errorf("payment cannot fail in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "fail"); err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}

// RefundFSM tracks the independent refund sub-state of a payment:
// none → requested → refunded|failed, terminal.
type RefundFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewRefundFSM creates a refund state machine for a payment
func NewRefundFSM(payment *models.Payment) *RefundFSM {
	rfsm := &RefundFSM{
		payment: payment,
	}

	rfsm.fsm = fsm.NewFSM(
		payment.RefundStatus,
		fsm.Events{
			{Name: "request", Src: []string{models.RefundStatusNone}, Dst: models.RefundStatusRequested},
			{Name: "confirm", Src: []string{models.RefundStatusRequested}, Dst: models.RefundStatusRefunded},
			{Name: "fail", Src: []string{models.RefundStatusNone, models.RefundStatusRequested}, Dst: models.RefundStatusFailed},
		},
		fsm.Callbacks{},
	)

	return rfsm
}

// Request transitions refund sub-state to requested
func (r *RefundFSM) Request(ctx context.Context) error {
	if !r.payment.MayRequestRefund() {
		return fmt.Errorf("refund cannot be requested: payment status %s, refund status %s",
			r.payment.Status, r.payment.RefundStatus)
	}

	if err := r.fsm.Event(ctx, "request"); err != nil {
		return fmt.Errorf("failed to request refund: %w", err)
	}

	r.payment.RefundStatus = r.fsm.Current()
	return nil
}

// Confirm transitions refund sub-state to refunded
func (r *RefundFSM) Confirm(ctx context.Context) error {
	if err := r.fsm.Event(ctx, "confirm"); err != nil {
		return fmt.Errorf("failed to confirm refund: %w", err)
	}

	r.payment.RefundStatus = r.fsm.Current()
	return nil
}

// Fail transitions refund sub-state to failed
func (r *RefundFSM) Fail(ctx context.Context) error {
	if err := r.fsm.Event(ctx, "fail"); err != nil {
		return fmt.Errorf("failed to mark refund failed: %w", err)
	}

	r.payment.RefundStatus = r.fsm.Current()
	return nil
}

// Current returns the current refund sub-state
func (r *RefundFSM) Current() string {
	return r.fsm.Current()
}
