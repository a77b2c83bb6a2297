package ledger

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

const DateLayout = "2006-01-02"

// NormalizeDate は呼び出し側のタイムゾーンで書かれた暦日をUTCの0時にそろえる。
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate は "2006-01-02" か RFC3339 を受け付け、暦日に丸めて返す。
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return NormalizeDate(t), nil
}

// DayRange は[from, to]の暦日範囲を [from0時, to翌日0時) に変換する。
func DayRange(from, to *time.Time) (start *time.Time, end *time.Time) {
	if from != nil {
		s := NormalizeDate(*from)
		start = &s
	}
	if to != nil {
		e := NormalizeDate(*to).AddDate(0, 0, 1)
		end = &e
	}
	return start, end
}
