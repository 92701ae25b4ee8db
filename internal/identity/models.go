package identity

import (
	"regexp"
	"time"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/face"
)

// Role distinguishes administrators from exam candidates.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// BootstrapAdminID is the one id that is permanently admin: its role is
// coerced to admin at registration and again at every session grant, and
// the record can never be deleted.
const BootstrapAdminID = "1"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Identity is one enrolled user. IDs are externally assigned and immutable.
// An identity may hold several embeddings (different lighting, angles);
// each must have exactly face.EmbeddingDim components.
type Identity struct {
	ID            string
	Name          string
	Role          Role
	Embeddings    [][]float64
	MFASecret     string
	MFAEnabled    bool
	ExamSubjects  []string
	ExamsVerified []string
	Deleted       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeriveRole returns the effective role for an id. The bootstrap admin id
// wins over whatever is stored or requested.
func DeriveRole(id string, stored Role) Role {
	if id == BootstrapAdminID {
		return RoleAdmin
	}
	if stored == RoleAdmin {
		return RoleAdmin
	}
	return RoleStudent
}

// ValidateID checks the externally assigned id format.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid user id")
	}
	return nil
}

// Active reports whether the identity can still be matched: soft-deleted
// records keep their id but lose their biometric material.
func (i *Identity) Active() bool {
	return !i.Deleted && len(i.Embeddings) > 0
}

// AddEmbedding appends an enrollment vector after checking its dimension.
func (i *Identity) AddEmbedding(embedding []float64) error {
	if len(embedding) != face.EmbeddingDim {
		return dErrors.New(dErrors.CodeBadRequest, "embedding must have 128 components")
	}
	i.Embeddings = append(i.Embeddings, embedding)
	return nil
}

// SoftDelete revokes the identity's biometric and MFA material while
// keeping the record and its id permanently. The name is marked so admin
// listings show the state.
func (i *Identity) SoftDelete(now time.Time) {
	i.Embeddings = nil
	i.MFASecret = ""
	i.MFAEnabled = false
	i.Deleted = true
	i.Name = i.Name + " (deleted)"
	i.UpdatedAt = now
}

// MarkExamVerified records in-person verification for a subject. The set is
// append-only per subject: repeats report false and change nothing.
func (i *Identity) MarkExamVerified(subject string) bool {
	for _, s := range i.ExamsVerified {
		if s == subject {
			return false
		}
	}
	i.ExamsVerified = append(i.ExamsVerified, subject)
	return true
}
