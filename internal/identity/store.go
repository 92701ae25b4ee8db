package identity

import "context"

// Store persists identity records. Implementations must make Create atomic
// with respect to the duplicate-id check, and Execute must hold whatever
// exclusion the backend offers (mutex, FOR UPDATE) across both callbacks so
// validate-then-mutate cannot race.
type Store interface {
	Create(ctx context.Context, record *Identity) error
	FindByID(ctx context.Context, id string) (*Identity, error)
	List(ctx context.Context) ([]*Identity, error)
	Execute(ctx context.Context, id string, validate func(*Identity) error, mutate func(*Identity)) (*Identity, error)
}
