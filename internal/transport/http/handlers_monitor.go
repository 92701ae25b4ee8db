package http

import (
	"encoding/json"
	"net/http"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/face"
	"facegate/internal/identity"
	"facegate/internal/monitor"
	"facegate/pkg/platform/httputil"
	"facegate/pkg/requestcontext"
)

type monitorHandler struct {
	svc      *monitor.Service
	identity *identity.Service
}

type monitorRequest struct {
	Image     string `json:"image,omitempty"`
	Terminate bool   `json:"terminate,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type monitorResponse struct {
	Outcome  string  `json:"outcome"`
	Status   string  `json:"status,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}

// monitor handles both periodic frame checks and the client's termination
// signal; the two never arrive in one request.
func (h *monitorHandler) monitor(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	userID := requestcontext.UserID(r.Context())

	if req.Terminate {
		result := h.svc.Terminate(r.Context(), userID, req.Reason)
		httputil.WriteJSON(w, http.StatusOK, monitorResponse{
			Outcome: string(result.Outcome),
			Status:  result.Status,
		})
		return
	}

	frame, err := face.DecodeImage(req.Image)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.svc.Check(r.Context(), userID, frame)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, monitorResponse{
		Outcome:  string(result.Outcome),
		Status:   result.Status,
		Distance: result.Distance,
	})
}

type examVerifiedRequest struct {
	Subject string `json:"subject"`
}

type examVerifiedResponse struct {
	Subject string `json:"subject"`
	Marked  bool   `json:"marked"`
}

func (h *monitorHandler) markExamVerified(w http.ResponseWriter, r *http.Request) {
	var req examVerifiedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	userID := requestcontext.UserID(r.Context())

	marked, err := h.identity.MarkExamVerified(r.Context(), userID, req.Subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, examVerifiedResponse{Subject: req.Subject, Marked: marked})
}
