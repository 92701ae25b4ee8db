package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/auth"
	"facegate/internal/face"
	"facegate/internal/identity"
	"facegate/pkg/platform/httputil"
)

type authHandler struct {
	identity *identity.Service
	auth     *auth.Service
	logger   *slog.Logger
}

type registerRequest struct {
	UserID       string   `json:"user_id"`
	Name         string   `json:"name"`
	Image        string   `json:"image"`
	ExamSubjects []string `json:"exam_subjects,omitempty"`
}

type registerResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	MFAURI string `json:"mfa_uri"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	image, err := face.DecodeImage(req.Image)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reg, err := h.identity.Register(r.Context(), req.UserID, req.Name, image, req.ExamSubjects)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		UserID: reg.UserID,
		Role:   string(reg.Role),
		MFAURI: reg.ProvisioningURI,
	})
}

type faceRequest struct {
	UserID string `json:"user_id,omitempty"`
	Image  string `json:"image"`
}

type faceResponse struct {
	UserID      string  `json:"user_id"`
	Distance    float64 `json:"distance"`
	MFARequired bool    `json:"mfa_required"`
}

func (h *authHandler) authenticateFace(w http.ResponseWriter, r *http.Request) {
	var req faceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	image, err := face.DecodeImage(req.Image)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.auth.AuthenticateFace(r.Context(), req.UserID, image)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, faceResponse{
		UserID:      result.UserID,
		Distance:    result.Distance,
		MFARequired: result.MFARequired,
	})
}

type mfaRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *authHandler) verifyMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	session, err := h.auth.VerifyMFA(r.Context(), req.UserID, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		UserID:    session.UserID,
		Role:      string(session.Role),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
