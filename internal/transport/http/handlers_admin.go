package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/audit"
	"facegate/internal/identity"
	"facegate/internal/ledger"
	"facegate/internal/schedule"
	"facegate/pkg/platform/httputil"
	"facegate/pkg/platform/sentinel"
	"facegate/pkg/requestcontext"
)

type adminHandler struct {
	identity *identity.Service
	schedule schedule.Store
	audit    *audit.Recorder
	logger   *slog.Logger
}

type userSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	MFAEnabled    bool     `json:"mfa_enabled"`
	Deleted       bool     `json:"deleted"`
	ExamSubjects  []string `json:"exam_subjects"`
	ExamsVerified []string `json:"exams_verified"`
}

type overviewResponse struct {
	Users       []userSummary    `json:"users"`
	TotalUsers  int              `json:"total_users"`
	ActiveUsers int              `json:"active_users"`
	Schedule    []schedule.Entry `json:"schedule"`
	RecentAudit []ledger.Entry   `json:"recent_audit"`
}

const recentAuditLimit = 20

func (h *adminHandler) overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.identity.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.schedule.All(ctx)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "schedule read failed"))
		return
	}
	trail, err := h.audit.ReadAll(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := overviewResponse{
		Users:    make([]userSummary, 0, len(records)),
		Schedule: entries,
	}
	for _, rec := range records {
		resp.Users = append(resp.Users, userSummary{
			ID:            rec.ID,
			Name:          rec.Name,
			Role:          string(rec.Role),
			MFAEnabled:    rec.MFAEnabled,
			Deleted:       rec.Deleted,
			ExamSubjects:  rec.ExamSubjects,
			ExamsVerified: rec.ExamsVerified,
		})
		resp.TotalUsers++
		if rec.Active() {
			resp.ActiveUsers++
		}
	}
	resp.RecentAudit = newestFirst(trail, recentAuditLimit)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type auditResponse struct {
	Entries []ledger.Entry `json:"entries"`
}

// auditTrail returns the whole trail, newest first for display.
func (h *adminHandler) auditTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.audit.ReadAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auditResponse{Entries: newestFirst(trail, len(trail))})
}

type mfaToggleResponse struct {
	UserID     string `json:"user_id"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

func (h *adminHandler) toggleMFA(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	enabled, err := h.identity.ToggleMFA(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "mfa toggled",
		"user_id", id,
		"mfa_enabled", enabled,
		"admin_id", requestcontext.UserID(r.Context()),
	)
	httputil.WriteJSON(w, http.StatusOK, mfaToggleResponse{UserID: id, MFAEnabled: enabled})
}

type subjectsRequest struct {
	Subjects []string `json:"subjects"`
}

func (h *adminHandler) setExamSubjects(w http.ResponseWriter, r *http.Request) {
	var req subjectsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.identity.SetExamSubjects(r.Context(), id, req.Subjects); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.identity.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scheduleRequest struct {
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
}

func (h *adminHandler) setSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Subject == "" || req.Date.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "subject and date are required"))
		return
	}
	if err := h.schedule.Set(r.Context(), schedule.Entry{Subject: req.Subject, Date: req.Date}); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "schedule update failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	err := h.schedule.Delete(r.Context(), subject)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "subject not scheduled"))
		return
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "schedule delete failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newestFirst(entries []ledger.Entry, limit int) []ledger.Entry {
	out := make([]ledger.Entry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out
}
