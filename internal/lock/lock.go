// Package lock は在庫品目ごとの書き込みを直列化する。
// 既定はプロセス内の鍵付きmutex、REDIS_ADDRがあればredislockを使う。
package lock

import (
	"context"
	"errors"
	"fmt"
)

// 待っても取れなかった
var ErrBusy = errors.New("lock: busy")

// Lockerは鍵ごとの排他。unlockは1回だけ呼ぶ。
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func StockKey(stockID int64) string {
	return fmt.Sprintf("stock:%d", stockID)
}

// カテゴリ内の品目名の一意性チェック用
func StockNamesKey(categoryID int64) string {
	return fmt.Sprintf("stock:names:%d", categoryID)
}

// 販売先の削除と、その販売先への記録を直列化する
func MarketplaceKey(marketplaceID int64) string {
	return fmt.Sprintf("marketplace:%d", marketplaceID)
}

const (
	CategoryNamesKey    = "category:names"
	MarketplaceNamesKey = "marketplace:names"
)
