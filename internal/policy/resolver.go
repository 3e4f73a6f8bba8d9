package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Radix-Obsidian/ShepGate/internal/storage"
	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the human decision applied to a pending action.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeDeny    Outcome = "deny"
)

// ErrPendingActionNotFound is returned when a pending action id does not resolve.
var ErrPendingActionNotFound = errors.New("pending action not found")

// ErrInvalidStateTransition is returned when resolving an action that has
// already reached a terminal status. State is not mutated and no duplicate
// audit entry is written.
var ErrInvalidStateTransition = errors.New("invalid state transition: action already resolved")

// Resolver transitions pending actions to their terminal state and writes
// the matching audit entry. On approve it only authorizes: the caller is
// expected to dispatch the actual tool call afterwards.
type Resolver struct {
	store  Store
	writer storage.EventWriter
	logger *zap.Logger
}

// NewResolver creates a Resolver with the given dependencies.
func NewResolver(st Store, writer storage.EventWriter, logger *zap.Logger) *Resolver {
	return &Resolver{store: st, writer: writer, logger: logger}
}

// Resolve applies the outcome to one pending action, exactly once.
// Returns the resolved action so callers can dispatch on approve.
func (r *Resolver) Resolve(ctx context.Context, id string, outcome Outcome) (*store.PendingAction, error) {
	var newStatus, logStatus, logReason string
	switch outcome {
	case OutcomeApprove:
		newStatus, logStatus, logReason = store.PendingStatusApproved, store.LogStatusExecuted, ReasonApproved
	case OutcomeDeny:
		newStatus, logStatus, logReason = store.PendingStatusDenied, store.LogStatusDenied, ReasonDeniedByUser
	default:
		return nil, fmt.Errorf("Resolve: unknown outcome %q", outcome)
	}

	pa, _, err := r.store.ResolvePendingAction(ctx, id, newStatus, logStatus, logReason)
	if err != nil {
		if errors.Is(err, store.ErrPendingNotFound) {
			return nil, ErrPendingActionNotFound
		}
		if errors.Is(err, store.ErrNotPending) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStateTransition, err)
		}
		return nil, fmt.Errorf("Resolve: %w", err)
	}

	r.logger.Info("pending action resolved",
		zap.String("pending_action_id", pa.ID),
		zap.String("status", pa.Status),
	)
	r.emit(pa, logStatus, logReason)
	return pa, nil
}

// BatchItem reports one id's outcome from a batch resolution.
type BatchItem struct {
	ID  string
	Err error // nil on success
}

// BatchResult summarizes a batch resolution.
type BatchResult struct {
	Succeeded int
	Failed    int
	Items     []BatchItem
}

// BatchResolve applies the outcome to each id independently and in
// parallel. One failure never aborts the others.
func (r *Resolver) BatchResolve(ctx context.Context, ids []string, outcome Outcome) *BatchResult {
	items := make([]BatchItem, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := r.Resolve(ctx, id, outcome)
			items[i] = BatchItem{ID: id, Err: err}
		}(i, id)
	}
	wg.Wait()

	result := &BatchResult{Items: items}
	for _, item := range items {
		if item.Err == nil {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

func (r *Resolver) emit(pa *store.PendingAction, status, reason string) {
	if r.writer == nil {
		return
	}
	r.writer.Write(&storage.DecisionEvent{
		RequestID:     uuid.New().String(),
		Timestamp:     time.Now(),
		AgentID:       pa.AgentID,
		ToolID:        pa.ToolID,
		ArgumentsJSON: pa.ArgumentsJSON,
		Status:        status,
		Reason:        reason,
		Source:        "resolve",
	})
}
