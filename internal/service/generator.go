package service

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	tokenLength  = 10
	suffixLength = 4
	// 降级模式下本地编号的上限（不含）
	fallbackRange = 10000
)

// AddressGenerator 生成临时邮箱地址。
//
// 地址格式为 <随机串><时间后缀>@<域名>，随机串取自 uuid v4，
// 时间后缀为当前毫秒时间戳 36 进制表示的末四位。不保证唯一。
type AddressGenerator struct {
	domain string
	now    func() time.Time
}

// NewAddressGenerator 创建地址生成器。
func NewAddressGenerator(domain string) *AddressGenerator {
	return &AddressGenerator{
		domain: strings.ToLower(domain),
		now:    time.Now,
	}
}

// Domain 返回生成器使用的域名。
func (g *AddressGenerator) Domain() string {
	return g.domain
}

// Generate 生成一个新地址，无副作用。
func (g *AddressGenerator) Generate() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]

	suffix := strconv.FormatInt(g.now().UnixMilli(), 36)
	if len(suffix) > suffixLength {
		suffix = suffix[len(suffix)-suffixLength:]
	}

	return token + suffix + "@" + g.domain
}

// LocalFallback 生成服务端不可用时客户端使用的本地地址。
func (g *AddressGenerator) LocalFallback() string {
	return fmt.Sprintf("user%d@%s", rand.Intn(fallbackRange), g.domain)
}
