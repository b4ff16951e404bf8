package domain

import "errors"

var (
	// ErrAddressNotFound 地址不存在或已过期
	ErrAddressNotFound = errors.New("address not found or expired")
	// ErrMessageNotFound 邮件不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrAddressExists 地址已存在（生成冲突）
	ErrAddressExists = errors.New("address already exists")
	// ErrValidationMissing 必填字段缺失
	ErrValidationMissing = errors.New("required field missing")
)

// IsNotFound 判断错误是否属于“不存在”类别。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAddressNotFound) || errors.Is(err, ErrMessageNotFound)
}
