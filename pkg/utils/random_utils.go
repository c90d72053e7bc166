package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

// 单号前缀
const (
	PrefixBooking     = "BK"
	PrefixInvoice     = "INV"
	PrefixTicket      = "TKT"
	PrefixTransaction = "TRX"
)

const (
	referenceAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceSuffixLen  = 4
	referenceTimeLayout = "20060102150405"
)

// GenerateReference 生成业务单号: 前缀 + 时间戳(精确到毫秒) + 随机后缀
// 例如 BK20240501103015123-X7QK，仅依靠随机后缀降低冲突概率
func GenerateReference(prefix string) string {
	return generateReferenceAt(prefix, time.Now())
}

func generateReferenceAt(prefix string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(prefix))
	sb.WriteString(now.Format(referenceTimeLayout))
	sb.WriteString(now.Format(".000")[1:])
	sb.WriteByte('-')
	sb.WriteString(RandomString(referenceSuffixLen))
	return sb.String()
}

// RandomString 生成指定长度的大写字母数字随机串（去掉易混淆字符）
func RandomString(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("generate random string failed")
		}
		buf[i] = referenceAlphabet[idx.Int64()]
	}
	return string(buf)
}

// RandomDigits 生成指定长度的数字验证码
func RandomDigits(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}
