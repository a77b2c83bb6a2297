package model

import "time"

// 作成・更新・削除など。
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
	//在庫の入庫数を訂正した操作。
	AuditActionCorrectInitial AuditAction = "CORRECT_INITIAL"
	//台帳から在庫数を再構築した操作。
	AuditActionRebuildStock AuditAction = "REBUILD_STOCK"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceCategory    AuditResourceType = "category"
	AuditResourceMarketplace AuditResourceType = "marketplace"
	AuditResourceStock       AuditResourceType = "stock"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作した管理者のユーザー名。CLIからは"system"。
	Actor string `gorm:"type:varchar(100);not null;index" json:"actor"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resourceType"`

	ResourceID int64 `gorm:"not null;index" json:"resourceId"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"beforeJson"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"afterJson"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
