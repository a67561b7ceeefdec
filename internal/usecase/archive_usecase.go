package usecase

import (
	"context"
	"fmt"
	"time"

	repo "porto/internal/repository"
)

type ArchiveResult struct {
	Orders int64
	Events int64
}

// 期限切れの掲載・イベントを archived にする。何度流しても結果は同じ
type ArchiveUsecase struct {
	tx repo.TransactionManager
}

func NewArchiveUsecase(tx repo.TransactionManager) *ArchiveUsecase {
	return &ArchiveUsecase{tx: tx}
}

func (u *ArchiveUsecase) ArchiveExpired(ctx context.Context, now time.Time) (ArchiveResult, error) {
	var res ArchiveResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		n, err := r.Orders().ArchiveExpired(ctx, now)
		if err != nil {
			return err
		}
		res.Orders = n

		n, err = r.Events().ArchiveExpired(ctx, now)
		if err != nil {
			return err
		}
		res.Events = n
		return nil
	})
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("archive expired: %w", err)
	}
	return res, nil
}
