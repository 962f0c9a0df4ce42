package usecases

import (
	"context"
	"fmt"

	"github.com/example/tablesched/internal/domain/reservation"
)

type PingStore struct {
	Repo reservation.Repository
}

func (u PingStore) Execute(ctx context.Context) error {
	if u.Repo == nil {
		return fmt.Errorf("repository is nil")
	}
	return u.Repo.Ping(ctx)
}
