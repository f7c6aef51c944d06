package prefs

import (
	"math"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

// DefaultHalfLifeDays 是默认半衰期（天）。
const DefaultHalfLifeDays = 14.0

// ErrInvalidHalfLife 表示半衰期不是有限正数。
var ErrInvalidHalfLife = core.NewDomainError(core.ModulePrefs, core.ErrorCodeInvalidInput, "prefs: half-life must be a positive finite number of days")

// Decay 对所有 KeyStat 做指数衰减：w *= 2^(-elapsedDays/halfLifeDays)。
//
// elapsed 从 max(LastUpdated, DecayedAt) 算起，衰减后 DecayedAt = now，LastUpdated 不变；
// 因此同一时刻重复调用不会重复衰减，先衰减到 t1 再到 t2 与一次衰减到 t2 等价。
// pruneBelow > 0 时删除衰减后权重低于该值的 key。返回被衰减的 key 数量。
func Decay(s *State, halfLifeDays float64, now time.Time, pruneBelow float64) (int, error) {
	if math.IsNaN(halfLifeDays) || math.IsInf(halfLifeDays, 0) || halfLifeDays <= 0 {
		return 0, ErrInvalidHalfLife
	}

	decayed := 0
	for _, tbl := range s.Facets {
		for key, st := range tbl {
			if st == nil {
				delete(tbl, key)
				continue
			}
			ref := st.reference()
			if ref.IsZero() {
				continue
			}
			elapsed := now.Sub(ref)
			if elapsed > 0 {
				days := float64(elapsed) / float64(24*time.Hour)
				st.Weight = sanitizeWeight(st.Weight * math.Exp2(-days/halfLifeDays))
				st.DecayedAt = now
				decayed++
			}
			if pruneBelow > 0 && st.Weight < pruneBelow {
				delete(tbl, key)
			}
		}
	}
	return decayed, nil
}
