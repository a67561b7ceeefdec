package usecase

import (
	"context"
	"strings"
	"time"

	"porto/internal/domain/model"
	"porto/internal/notification"
	repo "porto/internal/repository"
)

// 管理者から有効な全ユーザーへの一斉通知
type BroadcastUsecase struct {
	tx       repo.TransactionManager
	users    repo.UserDirectory
	notifier Notifier
	now      func() time.Time
}

func NewBroadcastUsecase(tx repo.TransactionManager, users repo.UserDirectory, notifier Notifier) *BroadcastUsecase {
	return &BroadcastUsecase{tx: tx, users: users, notifier: notifier, now: time.Now}
}

type BroadcastInput struct {
	Title *string
	Body  string
}

type BroadcastOutput struct {
	Title      *string `json:"title"`
	Body       string  `json:"body"`
	Recipients int     `json:"recipients"`
	Created    int64   `json:"created"`
}

// 監査ログを書いてから一括で配る。配信の失敗はNotifierの中で吸収される
func (u *BroadcastUsecase) Broadcast(ctx context.Context, actor Actor, in BroadcastInput) (BroadcastOutput, error) {
	if !actor.IsAdmin() {
		return BroadcastOutput{}, Inaccessible("Недостаточно прав")
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return BroadcastOutput{}, Unprocessable(1, "Текст уведомления не может быть пустым")
	}

	ids, err := u.users.ListActiveIDs(ctx)
	if err != nil {
		return BroadcastOutput{}, dbError(err)
	}

	now := u.now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return writeAudit(ctx, r, actor, model.AuditActionBroadcast, model.AuditResourceNotification, 0,
			nil,
			map[string]interface{}{"title": in.Title, "body": body, "recipients": len(ids)},
			now)
	})
	if err != nil {
		return BroadcastOutput{}, err
	}

	if len(ids) > 0 {
		u.notifier.NotifyMany(ctx, ids, notification.Message{Title: in.Title, Body: body})
	}
	return BroadcastOutput{Title: in.Title, Body: body, Recipients: len(ids), Created: now.Unix()}, nil
}
