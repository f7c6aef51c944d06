package feature

import "math"

// DefaultSaturation 是外部热度的饱和值：view_count 达到该值时趋势分为 1。
const DefaultSaturation = 100.0

// Trend 返回 max(本地浏览占比, min(外部热度, 饱和值)/饱和值)，范围 [0,1]。
// maxLocal 是本地浏览计数中的最大值（按 max(1, ·) 处理）。
func Trend(local, maxLocal, external int64, saturation float64) float64 {
	if saturation <= 0 || math.IsNaN(saturation) {
		saturation = DefaultSaturation
	}
	share := 0.0
	if local > 0 {
		share = float64(local) / float64(max(1, maxLocal))
		share = math.Min(share, 1)
	}
	ext := 0.0
	if external > 0 {
		ext = math.Min(float64(external), saturation) / saturation
	}
	return math.Max(share, ext)
}

// MaxViews 返回浏览计数中的最大值，空表为 0。
func MaxViews(views map[int64]int64) int64 {
	var m int64
	for _, v := range views {
		if v > m {
			m = v
		}
	}
	return m
}

// Noise 是会话级确定性噪声：对 id 与 seed 做 xorshift32，映射到 [0,1]。
// 同一 (id, seed) 总得到同一值。
func Noise(id int64, seed uint32) float64 {
	x := uint32(id) ^ seed
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return float64(x) / math.MaxUint32
}
