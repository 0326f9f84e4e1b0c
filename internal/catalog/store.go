package catalog

import "context"

// Store owns the product collection. Every read and write of products goes
// through it.
//
// Expected failures are returned as errors matching ErrInvalidProduct,
// ErrDuplicateCode or ErrNotFound; the store is unchanged after any failed
// call.
type Store interface {
	Ping(ctx context.Context) error

	// List returns a snapshot of all products in insertion (id) order.
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)

	Create(ctx context.Context, in NewProduct) (Product, error)
	Update(ctx context.Context, id int64, p Patch) (Product, error)
	Delete(ctx context.Context, id int64) error
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
