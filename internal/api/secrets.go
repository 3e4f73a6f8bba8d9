package api

import (
	"net/http"

	"go.uber.org/zap"
)

// handleUpsertSecret stores a secret for injection into spawned tool
// servers. The value is write-only: no endpoint ever returns it.
func (d *Dependencies) handleUpsertSecret(w http.ResponseWriter, r *http.Request) {
	var req UpsertSecretReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" || req.Value == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name and value are required"})
		return
	}

	secret, err := d.Store.UpsertSecret(r.Context(), req.Name, req.Value, req.Description)
	if err != nil {
		d.Logger.Error("upsert secret", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, secretToResp(secret))
}

func (d *Dependencies) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	secrets, err := d.Store.ListSecrets(r.Context())
	if err != nil {
		d.Logger.Error("list secrets", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}

	resp := make([]SecretResp, 0, len(secrets))
	for _, s := range secrets {
		resp = append(resp, secretToResp(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	deleted, err := d.Store.DeleteSecret(r.Context(), r.PathValue("secret_id"))
	if err != nil {
		d.Logger.Error("delete secret", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal error"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Secret not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
