package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

func newTestResolver(f *fakeStore) *Resolver {
	return NewResolver(f, nil, zap.NewNop())
}

func deferredAction(t *testing.T, f *fakeStore) *store.PendingAction {
	t.Helper()
	agent := f.addAgent("coder")
	tool := f.addTool("github_create_issue", store.RiskNeedsApproval)
	f.allow(agent.ID, tool.ID, true)

	result, err := newTestEngine(f).Evaluate(context.Background(), agent.ID, tool.ID, `{"title":"x"}`)
	if err != nil {
		t.Fatalf("setup evaluate failed: %v", err)
	}
	return f.pending[result.PendingActionID]
}

func TestResolve_Approve(t *testing.T) {
	f := newFakeStore()
	pa := deferredAction(t, f)

	resolved, err := newTestResolver(f).Resolve(context.Background(), pa.ID, OutcomeApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != store.PendingStatusApproved {
		t.Errorf("expected status approved, got %q", resolved.Status)
	}
	if len(f.logEntries) != 1 {
		t.Fatalf("expected exactly 1 log entry, got %d", len(f.logEntries))
	}
	entry := f.logEntries[0]
	if entry.Status != store.LogStatusExecuted || entry.Reason != ReasonApproved {
		t.Errorf("expected executed/approved log entry, got %s/%s", entry.Status, entry.Reason)
	}
	if entry.ArgumentsJSON != pa.ArgumentsJSON {
		t.Error("log entry should carry the original captured arguments")
	}
}

func TestResolve_Deny(t *testing.T) {
	f := newFakeStore()
	pa := deferredAction(t, f)

	resolved, err := newTestResolver(f).Resolve(context.Background(), pa.ID, OutcomeDeny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != store.PendingStatusDenied {
		t.Errorf("expected status denied, got %q", resolved.Status)
	}
	entry := f.logEntries[0]
	if entry.Status != store.LogStatusDenied || entry.Reason != ReasonDeniedByUser {
		t.Errorf("expected denied/denied_by_user log entry, got %s/%s", entry.Status, entry.Reason)
	}
}

func TestResolve_NotFound(t *testing.T) {
	f := newFakeStore()

	_, err := newTestResolver(f).Resolve(context.Background(), "pa_missing", OutcomeApprove)
	if !errors.Is(err, ErrPendingActionNotFound) {
		t.Fatalf("expected ErrPendingActionNotFound, got %v", err)
	}
}

func TestResolve_SecondResolutionFails(t *testing.T) {
	f := newFakeStore()
	pa := deferredAction(t, f)
	resolver := newTestResolver(f)

	if _, err := resolver.Resolve(context.Background(), pa.ID, OutcomeApprove); err != nil {
		t.Fatalf("first resolution failed: %v", err)
	}

	_, err := resolver.Resolve(context.Background(), pa.ID, OutcomeDeny)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	if pa.Status != store.PendingStatusApproved {
		t.Error("failed resolution must not mutate state")
	}
	if len(f.logEntries) != 1 {
		t.Errorf("failed resolution must not write a duplicate log entry, got %d", len(f.logEntries))
	}
}

func TestResolve_UnknownOutcome(t *testing.T) {
	f := newFakeStore()
	pa := deferredAction(t, f)

	_, err := newTestResolver(f).Resolve(context.Background(), pa.ID, Outcome("maybe"))
	if err == nil {
		t.Fatal("expected error for unknown outcome")
	}
	if pa.Status != store.PendingStatusPending {
		t.Error("unknown outcome must not mutate state")
	}
}

func TestBatchResolve_IsolatesFailures(t *testing.T) {
	f := newFakeStore()
	pa1 := deferredAction(t, f)
	pa2 := deferredAction(t, f)

	result := newTestResolver(f).BatchResolve(context.Background(),
		[]string{pa1.ID, "pa_missing", pa2.ID}, OutcomeApprove)

	if result.Succeeded != 2 {
		t.Errorf("expected 2 successes, got %d", result.Succeeded)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failed)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}
	if result.Items[1].ID != "pa_missing" || result.Items[1].Err == nil {
		t.Error("failing item should be reported in order with its error")
	}
	if pa1.Status != store.PendingStatusApproved || pa2.Status != store.PendingStatusApproved {
		t.Error("valid items should resolve despite the failing one")
	}
}
