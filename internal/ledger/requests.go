package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SendMoneyRequest asks another registered account for amount.
func (d *Directory) SendMoneyRequest(ctx context.Context, fromEmail, toEmail string, amount decimal.Decimal, description string) (PendingRequest, error) {
	amount, err := positive("money request", amount)
	if err != nil {
		return PendingRequest{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	from, err := d.mustAccount("money request", fromEmail)
	if err != nil {
		return PendingRequest{}, err
	}
	to, err := d.mustAccount("money request", toEmail)
	if err != nil {
		return PendingRequest{}, err
	}
	if from == to {
		return PendingRequest{}, fmt.Errorf("money request to %s: %w", toEmail, ErrSelfTransfer)
	}

	req := &PendingRequest{
		ID:          uuid.New(),
		FromEmail:   from.Email,
		FromName:    from.Name,
		ToEmail:     to.Email,
		ToName:      to.Name,
		Amount:      amount,
		Description: orDefault(description, "Money Request"),
		CreatedAt:   d.now(),
		Status:      RequestPending,
	}
	d.requests = append(d.requests, req)
	d.saveRequests(ctx)
	d.logger.Info("money request sent", "id", req.ID, "from", req.FromEmail, "to", req.ToEmail, "amount", amount.StringFixed(2))
	return *req, nil
}

// RespondToMoneyRequest lets the addressee accept or decline a pending
// request. Accepting moves the amount and flips the status in one step; a
// refused accept leaves the request pending.
func (d *Directory) RespondToMoneyRequest(ctx context.Context, responderEmail string, id uuid.UUID, accept bool) (PendingRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var req *PendingRequest
	for _, r := range d.requests {
		if r.ID == id {
			req = r
			break
		}
	}
	if req == nil {
		return PendingRequest{}, fmt.Errorf("respond %s: %w", id, ErrRequestNotFound)
	}
	if req.Status != RequestPending {
		return PendingRequest{}, fmt.Errorf("respond %s: %w", id, ErrRequestResolved)
	}
	if !strings.EqualFold(req.ToEmail, strings.TrimSpace(responderEmail)) {
		return PendingRequest{}, fmt.Errorf("respond %s: %w", id, ErrNotAddressee)
	}

	if !accept {
		req.Status = RequestDeclined
		d.saveRequests(ctx)
		return *req, nil
	}

	responder, err := d.mustAccount("respond", req.ToEmail)
	if err != nil {
		return PendingRequest{}, err
	}
	requester, err := d.mustAccount("respond", req.FromEmail)
	if err != nil {
		return PendingRequest{}, err
	}
	if responder.Balance.LessThan(req.Amount) {
		return PendingRequest{}, fmt.Errorf("respond %s: %w", id, ErrInsufficientFunds)
	}

	responder.Balance = responder.Balance.Sub(req.Amount)
	d.record(responder, TypeSend, req.Amount.Neg(), "Sent to "+req.FromName+" (request accepted)", req.FromName, responder.Name)
	requester.Balance = requester.Balance.Add(req.Amount)
	d.record(requester, TypeDeposit, req.Amount, "Received from "+req.ToName+" (request fulfilled)", requester.Name, req.ToName)
	req.Status = RequestAccepted

	d.saveRequests(ctx)
	d.saveAll(ctx)
	return *req, nil
}

// PendingRequestsFor lists requests still waiting on email's answer.
func (d *Directory) PendingRequestsFor(email string) []PendingRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []PendingRequest
	for _, r := range d.requests {
		if r.Status == RequestPending && strings.EqualFold(r.ToEmail, strings.TrimSpace(email)) {
			out = append(out, *r)
		}
	}
	return out
}

// PruneRequests drops requests created before the retention window,
// whatever their status, and returns how many went.
func (d *Directory) PruneRequests(ctx context.Context, olderThan time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := d.now().Add(-olderThan)
	kept := d.requests[:0]
	for _, r := range d.requests {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}
	removed := len(d.requests) - len(kept)
	d.requests = kept
	if removed > 0 {
		d.saveRequests(ctx)
		d.logger.Info("pruned money requests", "removed", removed)
	}
	return removed
}

// PruneEvery runs PruneRequests now and then once per interval until ctx
// ends.
func (d *Directory) PruneEvery(ctx context.Context, olderThan, interval time.Duration) {
	d.PruneRequests(ctx, olderThan)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.PruneRequests(ctx, olderThan)
		}
	}
}
