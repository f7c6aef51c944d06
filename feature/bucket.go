package feature

import (
	"regexp"
	"strconv"
	"strings"
)

// 价格分档（单位：BRL）。
const (
	PriceBudget  = "budget"
	PriceMid     = "mid"
	PricePremium = "premium"
	PriceLuxury  = "luxury"
)

// PriceBounds 是分档上界（不含）：<100 budget，<300 mid，<800 premium，其余 luxury。
var PriceBounds = []struct {
	Below  float64
	Bucket string
}{
	{100, PriceBudget},
	{300, PriceMid},
	{800, PricePremium},
}

// PriceBucket 返回价格分档；价格缺失或非正数时返回空串。
func PriceBucket(price float64, ok bool) string {
	if !ok || price <= 0 {
		return ""
	}
	for _, b := range PriceBounds {
		if price < b.Below {
			return b.Bucket
		}
	}
	return PriceLuxury
}

// 配送时效分档。
const (
	ETAFast  = "fast"  // <= 30 分钟
	ETAHour  = "hour"  // <= 60 分钟
	ETAToday = "today" // 当天
	ETALater = "later" // 次日及以后
)

var (
	etaHourMin = regexp.MustCompile(`(\d+)\s*h\s*(\d{1,2})\b`)
	etaNumber  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(minutos|minuto|mins|min|m|horas|hora|hrs|hr|h|dias|dia|d)?\b`)
	etaHours   = regexp.MustCompile(`\d\s*(?:horas|hora|hrs|hr|h)\b`)
	etaMinutes = regexp.MustCompile(`\d\s*(?:minutos|minuto|mins|min|m)\b`)
	etaToday   = []string{"hoje", "today", "mesmo dia"}
	etaLater   = []string{"amanhã", "amanha", "tomorrow", "dias úteis", "dias uteis"}
)

// ETABucket 从配送文案（如 "até 1h"、"30-45 min"、"hoje"）推断时效分档。
// 区间取上界；无法解析时返回空串。
func ETABucket(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}

	minutes := -1.0
	hourUnit := etaHours.MatchString(s) && !etaMinutes.MatchString(s)
	// "1h30" 形式先换算为分钟
	s = etaHourMin.ReplaceAllStringFunc(s, func(m string) string {
		parts := etaHourMin.FindStringSubmatch(m)
		h, _ := strconv.Atoi(parts[1])
		mm, _ := strconv.Atoi(parts[2])
		return strconv.Itoa(h*60+mm) + " min"
	})
	for _, m := range etaNumber.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		switch unit := m[2]; {
		case strings.HasPrefix(unit, "d"):
			v *= 24 * 60
		case strings.HasPrefix(unit, "h"):
			v *= 60
		case unit == "" && minutes < 0 && hourUnit:
			// "1-2h": 区间前半没有单位，沿用小时
			v *= 60
		}
		if v > minutes {
			minutes = v
		}
	}

	if minutes < 0 {
		switch {
		case containsAny(s, etaLater):
			return ETALater
		case containsAny(s, etaToday):
			return ETAToday
		}
		return ""
	}

	switch {
	case minutes <= 30:
		return ETAFast
	case minutes <= 60:
		return ETAHour
	case minutes < 24*60 && !containsAny(s, etaLater):
		return ETAToday
	default:
		return ETALater
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
