package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/pkg/conv"
)

// BlocklistFilter 过滤掉被屏蔽的商品（下架、用户拉黑等）。
type BlocklistFilter struct {
	// IDs 是内存中的屏蔽商品 ID
	IDs []int64

	// Source 用于从存储中读取屏蔽列表（可选）
	Source BlocklistSource

	// Key 是 Source 中的 key，"{user}" 会被替换为 rctx.UserID
	Key string
}

// BlocklistSource 是屏蔽列表存储接口。
type BlocklistSource interface {
	Blocklist(ctx context.Context, key string) ([]int64, error)
}

func (f *BlocklistFilter) Name() string {
	return "filter.blocklist"
}

func (f *BlocklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	for _, id := range f.IDs {
		if item.ID == id {
			return true, nil
		}
	}

	if f.Source == nil || f.Key == "" {
		return false, nil
	}
	key := f.Key
	if strings.Contains(key, "{user}") {
		if rctx == nil || rctx.UserID == "" {
			return false, nil
		}
		key = strings.ReplaceAll(key, "{user}", rctx.UserID)
	}
	ids, err := f.Source.Blocklist(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, id := range ids {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// StoreSource 将 core.Store 适配为 BlocklistSource。
// 值为 JSON 数组，元素可以是数字或数字字符串。
type StoreSource struct {
	store core.Store
}

// NewStoreSource 创建一个 core.Store 适配器。
func NewStoreSource(s core.Store) *StoreSource {
	return &StoreSource{store: s}
}

// Blocklist 从 Store 读取屏蔽列表。
func (a *StoreSource) Blocklist(ctx context.Context, key string) ([]int64, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("blocklist %s: %w", key, err)
	}
	return conv.SliceAnyToInt64(raw), nil
}
