package usecase

import (
	"context"

	repo "porto/internal/repository"
)

// ユーザー集計を動かす出来事
type counterEvent int

const (
	orderCreated counterEvent = iota
	offerCreated
	offerRemoved
	orderCompleted
)

var counterDeltas = map[counterEvent]struct {
	counter repo.UserCounter
	delta   int
}{
	orderCreated:   {repo.CounterCreatedOrders, 1},
	offerCreated:   {repo.CounterMyOffers, 1},
	offerRemoved:   {repo.CounterMyOffers, -1},
	orderCompleted: {repo.CounterCompletedOrders, 1},
}

// *_count を触るのはここだけ
func applyCounter(ctx context.Context, users repo.UserRepository, userID int64, ev counterEvent) error {
	d := counterDeltas[ev]
	err := users.AdjustCounter(ctx, userID, d.counter, d.delta)
	if err == repo.ErrNotFound {
		//ユーザー側が消えていても本体の操作は止めない
		return nil
	}
	return err
}
