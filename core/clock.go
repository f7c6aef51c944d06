package core

import "time"

// Clock 抽象当前时间，便于测试注入。
type Clock interface {
	Now() time.Time
}

// SystemClock 使用系统时间。
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc 将函数适配为 Clock。
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Rand 是排序用到的最小随机源，*math/rand/v2.Rand 直接满足此接口。
type Rand interface {
	Float64() float64
	IntN(n int) int
}
