package utils

import "strings"

// Label 是排序链路中的一等公民：可解释、可追踪、可透传。
// Source 表示写入阶段：filter / feature / rank / rerank / engine。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// MergeLabel 合并同名 Label：
// - Value 以 '|' 累积，已存在的值不重复追加
// - Source 以 ',' 累积，同样去重
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, "|"),
		Source: appendUnique(existing.Source, incoming.Source, ","),
	}
}

func appendUnique(acc, v, sep string) string {
	switch {
	case acc == "":
		return v
	case v == "":
		return acc
	}
	for _, p := range strings.Split(acc, sep) {
		if p == v {
			return acc
		}
	}
	return acc + sep + v
}
