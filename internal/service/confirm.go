package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beanvault/beanvault"
)

// Ticket identifies a confirmation waiting for an operator decision.
type Ticket struct {
	Token  string
	Prompt string
}

type ticketChKey struct{}

// WithTicketChannel attaches a ticket channel to the context so the caller
// learns when an operation suspended on a confirmation.
func WithTicketChannel(ctx context.Context) (context.Context, <-chan Ticket) {
	ch := make(chan Ticket, 1)
	return context.WithValue(ctx, ticketChKey{}, ch), ch
}

// ConfirmationBroker holds assignment operations suspended on a human yes/no
// decision. Each pending confirmation resolves exactly once: duplicate
// decisions (double click, repeated escape) are rejected, and entries
// abandoned past the TTL are declined, same as an explicit cancel.
type ConfirmationBroker struct {
	mu      sync.Mutex
	pending map[string]*pendingDecision
	ttl     time.Duration
}

type pendingDecision struct {
	prompt   string
	decision chan bool
	result   chan beanvault.AssignmentResult
	resolved bool
	created  time.Time
}

const defaultConfirmationTTL = 10 * time.Minute

func NewConfirmationBroker() *ConfirmationBroker {
	return &ConfirmationBroker{
		pending: make(map[string]*pendingDecision),
		ttl:     defaultConfirmationTTL,
	}
}

// Open registers a pending confirmation and returns its token plus the
// channel the suspended operation waits on.
func (b *ConfirmationBroker) Open(prompt string) (string, <-chan bool) {
	token := uuid.New().String()
	p := &pendingDecision{
		prompt:   prompt,
		decision: make(chan bool, 1),
		result:   make(chan beanvault.AssignmentResult, 1),
		created:  time.Now(),
	}

	b.mu.Lock()
	b.pending[token] = p
	b.mu.Unlock()

	return token, p.decision
}

// Confirm implements the confirmation port. It suspends the calling operation
// until the operator decides, announcing the pending ticket through the
// context's ticket channel. Context cancellation counts as a decline.
func (b *ConfirmationBroker) Confirm(ctx context.Context, prompt string) (bool, error) {
	token, decision := b.Open(prompt)

	if ch, ok := ctx.Value(ticketChKey{}).(chan Ticket); ok {
		ch <- Ticket{Token: token, Prompt: prompt}
	}

	select {
	case confirmed := <-decision:
		return confirmed, nil
	case <-ctx.Done():
		b.mu.Lock()
		if p, ok := b.pending[token]; ok && !p.resolved {
			p.resolved = true
			delete(b.pending, token)
		}
		b.mu.Unlock()
		return false, ctx.Err()
	}
}

// Resolve delivers the operator's decision. The returned channel yields the
// final outcome of the resumed operation. A second resolve of the same token
// fails.
func (b *ConfirmationBroker) Resolve(token string, confirmed bool) (<-chan beanvault.AssignmentResult, error) {
	b.mu.Lock()
	p, ok := b.pending[token]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("unknown confirmation token")
	}
	if p.resolved {
		b.mu.Unlock()
		return nil, fmt.Errorf("confirmation already resolved")
	}
	p.resolved = true
	b.mu.Unlock()

	p.decision <- confirmed
	return p.result, nil
}

// Prompt returns the message of a pending confirmation.
func (b *ConfirmationBroker) Prompt(token string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[token]
	if !ok {
		return "", false
	}
	return p.prompt, true
}

// Complete publishes the terminal outcome of a resumed operation and drops
// the entry.
func (b *ConfirmationBroker) Complete(token string, result beanvault.AssignmentResult) {
	b.mu.Lock()
	p, ok := b.pending[token]
	delete(b.pending, token)
	b.mu.Unlock()

	if ok {
		p.result <- result
	}
}

// Sweep declines confirmations older than the TTL. Run it periodically; an
// abandoned dialog is treated the same as an explicit cancel.
func (b *ConfirmationBroker) Sweep() {
	cutoff := time.Now().Add(-b.ttl)

	b.mu.Lock()
	var expired []*pendingDecision
	for token, p := range b.pending {
		if !p.resolved && p.created.Before(cutoff) {
			p.resolved = true
			expired = append(expired, p)
			delete(b.pending, token)
		}
	}
	b.mu.Unlock()

	for _, p := range expired {
		p.decision <- false
	}
}
