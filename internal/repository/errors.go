package repository

import "errors"

var ErrNotFound = errors.New("not found")

// 条件付き更新で対象行が期待値と違っていた（他の書き込みが先に入った）
var ErrStale = errors.New("stale write")
