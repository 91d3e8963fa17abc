package iob

import "context"

// Repository es el ledger persistido. Append-only: no hay update ni delete.
//
// List devuelve los eventos en orden de inserción. Si el ledger nunca fue
// escrito devuelve (nil, nil): "sin historial" no es un error.
type Repository interface {
	Append(ctx context.Context, e DoseEvent) error
	List(ctx context.Context) ([]DoseEvent, error)
}
