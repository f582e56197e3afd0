package contracts

import "context"

// TxRunner runs fn inside a storage transaction carried on the context.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
