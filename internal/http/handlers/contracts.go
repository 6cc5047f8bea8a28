package handlers

import (
	"context"

	"delivery-simulator/internal/domain"
)

type statsReader interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}
