package model

import "time"

type TransactionType string

const (
	TransactionInitial TransactionType = "initial"
	TransactionSell    TransactionType = "sell"
	TransactionReturn  TransactionType = "return"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionInitial, TransactionSell, TransactionReturn:
		return true
	}
	return false
}

type ReturnType string

const (
	ReturnCustomer ReturnType = "customer"
	ReturnCourier  ReturnType = "courier"
)

func (r ReturnType) Valid() bool {
	return r == ReturnCustomer || r == ReturnCourier
}

// 在庫の増減履歴（台帳の1行）。
// 名前類は記録時点のスナップショットで、参照先が改名・削除されても変わらない。
type StockTransaction struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	StockID         int64  `gorm:"not null;index" json:"stockId"`
	StockDeleted    bool   `gorm:"not null;default:false" json:"stockDeleted"`
	ModelName       string `gorm:"type:varchar(255);not null" json:"modelName"`
	InitialQuantity int64  `gorm:"not null" json:"initialQuantity"`

	CategoryID   int64  `gorm:"not null;index" json:"categoryId"`
	CategoryName string `gorm:"type:varchar(255);not null" json:"categoryName"`

	//initialのときはnil。販売先削除後もnil。
	MarketplaceID      *int64 `gorm:"index" json:"marketplaceId,omitempty"`
	MarketplaceName    string `gorm:"type:varchar(255);not null;default:''" json:"marketplaceName,omitempty"`
	MarketplaceDeleted bool   `gorm:"not null;default:false" json:"marketplaceDeleted"`

	TransactionType TransactionType `gorm:"type:varchar(20);not null;index" json:"transactionType"`
	ReturnType      ReturnType      `gorm:"type:varchar(20);not null;default:''" json:"returnType,omitempty"`

	//initialは「変更後の入庫数」、sell/returnは移動数量
	Quantity                  int64 `gorm:"not null" json:"quantity"`
	PreviousAvailableQuantity int64 `gorm:"not null" json:"previousAvailableQuantity"`
	NewAvailableQuantity      int64 `gorm:"not null" json:"newAvailableQuantity"`

	//業務日付（UTCの0時）
	Date      time.Time `gorm:"not null;index" json:"date"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// 参照先の表示用。Deleted=trueならIDは無くNameは最後に知っていた名前。
type Reference struct {
	ID      *int64 `json:"id,omitempty"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

func (t StockTransaction) StockRef() Reference {
	if t.StockDeleted {
		return Reference{Name: t.ModelName, Deleted: true}
	}
	id := t.StockID
	return Reference{ID: &id, Name: t.ModelName}
}

// initialには販売先が無いのでnilを返す
func (t StockTransaction) MarketplaceRef() *Reference {
	if t.TransactionType == TransactionInitial {
		return nil
	}
	if t.MarketplaceDeleted || t.MarketplaceID == nil {
		return &Reference{Name: t.MarketplaceName, Deleted: true}
	}
	id := *t.MarketplaceID
	return &Reference{ID: &id, Name: t.MarketplaceName}
}
