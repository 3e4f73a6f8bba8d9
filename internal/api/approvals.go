package api

import (
	"errors"
	"net/http"

	"github.com/Radix-Obsidian/ShepGate/internal/policy"
	"github.com/Radix-Obsidian/ShepGate/internal/store"
	"go.uber.org/zap"
)

func (d *Dependencies) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = store.PendingStatusPending
	}

	actions, err := d.Store.ListPendingActions(r.Context(), status)
	if err != nil {
		d.Logger.Error("list approvals", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	resp := make([]PendingActionResp, 0, len(actions))
	for _, a := range actions {
		resp = append(resp, pendingToResp(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleApprove resolves a pending action to approved and dispatches the
// deferred call. Resolution is exactly-once: a second approve (or a deny
// racing it) gets 409 and writes no duplicate audit entry.
func (d *Dependencies) handleApprove(w http.ResponseWriter, r *http.Request) {
	pa, err := d.Resolver.Resolve(r.Context(), r.PathValue("action_id"), policy.OutcomeApprove)
	if err != nil {
		d.writeResolveError(w, err)
		return
	}

	execResult, err := d.Executor.Invoke(r.Context(), pa.ToolID, pa.ArgumentsJSON)
	if err != nil {
		// The approval is already committed; report the dispatch failure
		// without rolling back the resolution.
		d.Logger.Error("dispatch after approval failed",
			zap.String("pending_action_id", pa.ID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, ResolveResp{ActionID: pa.ID, Status: pa.Status})
		return
	}

	writeJSON(w, http.StatusOK, ResolveResp{
		ActionID:  pa.ID,
		Status:    pa.Status,
		Execution: execResult,
	})
}

func (d *Dependencies) handleDeny(w http.ResponseWriter, r *http.Request) {
	pa, err := d.Resolver.Resolve(r.Context(), r.PathValue("action_id"), policy.OutcomeDeny)
	if err != nil {
		d.writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResp{ActionID: pa.ID, Status: pa.Status})
}

// handleBatchApprove approves a set of pending actions. Failures are
// isolated per item; approved actions are dispatched individually.
func (d *Dependencies) handleBatchApprove(w http.ResponseWriter, r *http.Request) {
	var req BatchApproveReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if len(req.ActionIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "action_ids is required"})
		return
	}

	batch := d.Resolver.BatchResolve(r.Context(), req.ActionIDs, policy.OutcomeApprove)

	resp := BatchApproveResp{
		Approved: batch.Succeeded,
		Failed:   batch.Failed,
		Items:    make([]BatchItemResp, 0, len(batch.Items)),
	}
	for _, item := range batch.Items {
		out := BatchItemResp{ID: item.ID}
		if item.Err != nil {
			out.Error = item.Err.Error()
			resp.Items = append(resp.Items, out)
			continue
		}
		resp.Items = append(resp.Items, out)

		pa, err := d.Store.GetPendingAction(r.Context(), item.ID)
		if err != nil || pa == nil {
			continue
		}
		if _, err := d.Executor.Invoke(r.Context(), pa.ToolID, pa.ArgumentsJSON); err != nil {
			d.Logger.Error("dispatch after batch approval failed",
				zap.String("pending_action_id", pa.ID),
				zap.Error(err),
			)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrPendingActionNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Pending action not found"})
	case errors.Is(err, policy.ErrInvalidStateTransition):
		writeJSON(w, http.StatusConflict, ErrorResp{Detail: "Action already resolved"})
	default:
		d.Logger.Error("resolve pending action", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
	}
}
