package domain

import (
	"strings"
	"time"
)

// Address 表示一个临时邮箱地址的元数据。
//
// ExpiresAt 始终等于 CreatedAt 加上固定 TTL，创建后不再变化。
type Address struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiredAt 判断地址在给定时间点是否已经过期。
func (a *Address) ExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Remaining 返回距离过期的剩余时间，已过期时返回 0。
func (a *Address) Remaining(now time.Time) time.Duration {
	if d := a.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// NormalizeAddress 统一地址格式（去除空白并转为小写），用作存储键。
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
