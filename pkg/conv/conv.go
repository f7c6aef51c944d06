// Package conv 提供配置解析用的类型转换工具。
// YAML/JSON 解码后数字可能是 int、int64 或 float64，这里统一处理。
package conv

import (
	"fmt"
	"strconv"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32 与可解析的数字字符串。
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToInt64 将 any 转为 int64，浮点数向零截断。
func ToInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case float64:
		return int64(val), true
	case float32:
		return int64(val), true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// ConvertMap 将 map[K]V1 按 convert 转为 map[K]V2，convert 返回 false 的条目被跳过。
func ConvertMap[K comparable, V1, V2 any](m map[K]V1, convert func(V1) (V2, bool)) map[K]V2 {
	if m == nil {
		return nil
	}
	out := make(map[K]V2, len(m))
	for k, v := range m {
		if v2, ok := convert(v); ok {
			out[k] = v2
		}
	}
	return out
}

// MapToFloat64 将 map[string]any 转为 map[string]float64，仅保留可转为 float64 的 value。
func MapToFloat64(m map[string]any) map[string]float64 {
	return ConvertMap(m, ToFloat64)
}

// SliceAnyToString 将 []any 转为 []string；数字格式化为整数文本。
// 也接受 []string 与单个 string。
func SliceAnyToString(v any) []string {
	switch raw := v.(type) {
	case []string:
		return raw
	case string:
		return []string{raw}
	case []any:
		return ConvertSlice(raw, func(e any) (string, bool) {
			if s, ok := e.(string); ok {
				return s, true
			}
			if f, ok := ToFloat64(e); ok {
				return fmt.Sprintf("%.0f", f), true
			}
			return "", false
		})
	default:
		return nil
	}
}

// SliceAnyToInt64 将 []any 转为 []int64，无法转换的元素被跳过。
func SliceAnyToInt64(v any) []int64 {
	switch raw := v.(type) {
	case []int64:
		return raw
	case []any:
		return ConvertSlice(raw, ToInt64)
	default:
		return nil
	}
}

// ConfigGet 从 map[string]any 按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt64 从 config 取 int64，兼容 int / float64。
func ConfigGetInt64(m map[string]any, key string, defaultVal int64) int64 {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	if n, ok := ToInt64(v); ok {
		return n
	}
	return defaultVal
}

// ConfigGetFloat64 从 config 取 float64，YAML 中写成整数（如 `boost: 2`）也能读取。
func ConfigGetFloat64(m map[string]any, key string, defaultVal float64) float64 {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	if f, ok := ToFloat64(v); ok {
		return f
	}
	return defaultVal
}
