package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	//掲載のモデレーション
	AuditActionModerateOrder AuditAction = "MODERATE_ORDER"
	//掲載のブロック/解除
	AuditActionBlockOrder AuditAction = "BLOCK_ORDER"
	//掲載の削除
	AuditActionDeleteOrder AuditAction = "DELETE_ORDER"
	//イベントのモデレーション
	AuditActionModerateEvent AuditAction = "MODERATE_EVENT"
	//全員への一斉通知
	AuditActionBroadcast AuditAction = "BROADCAST_NOTIFICATION"
	//カタログ編集
	AuditActionCreateCategory    AuditAction = "CREATE_CATEGORY"
	AuditActionUpdateCategory    AuditAction = "UPDATE_CATEGORY"
	AuditActionDeleteCategory    AuditAction = "DELETE_CATEGORY"
	AuditActionCreateSubcategory AuditAction = "CREATE_SUBCATEGORY"
	AuditActionUpdateSubcategory AuditAction = "UPDATE_SUBCATEGORY"
	AuditActionDeleteSubcategory AuditAction = "DELETE_SUBCATEGORY"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder        AuditResourceType = "order"
	AuditResourceEvent        AuditResourceType = "event"
	AuditResourceNotification AuditResourceType = "notification"
	AuditResourceCategory     AuditResourceType = "category"
	AuditResourceSubcategory  AuditResourceType = "subcategory"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作した管理者のID
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
