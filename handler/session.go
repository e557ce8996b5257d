package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storefront/session"
)

type signInReq struct {
	AccessToken string `json:"accessToken"`
}

// SignIn handles POST /session
// body: { "accessToken": "<provider jwt>" }
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		writeErr(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	sid := h.sessionID(r)
	if sid == "" {
		sid = session.NewSessionID()
	}
	id, err := h.sessions.SignIn(r.Context(), sid, req.AccessToken)
	if err != nil {
		h.fail(w, r, err, "Failed to sign in")
		return
	}

	// a fresh workspace so capabilities match the new identity
	ws := newWorkspace(h.api, session.Signed(id), h.cfg.API.PageSize, h.log)
	h.workspaces.Store(sid, ws)
	h.setCookie(w, sid, id.ExpiresAt)
	h.log.Info("signed in", zap.String("subject", id.Subject), zap.Bool("admin", id.IsAdmin()))
	writeData(w, http.StatusOK, toIdentityView(id))
}

// SignOut handles DELETE /session
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(r)
	if v, ok := h.workspaces.LoadAndDelete(sid); ok {
		v.(*Workspace).Identity.SignOut()
	}
	if err := h.sessions.SignOut(r.Context(), sid); err != nil {
		h.log.Warn("session delete failed", zap.Error(err))
	}
	h.clearCookie(w)
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Signed out"})
}

// GetSession handles GET /session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	id, ok := ws.Identity.Identity()
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Please sign in")
		return
	}
	writeData(w, http.StatusOK, toIdentityView(id))
}
