package prefs

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

const (
	// CurrentVersion 是当前持久化格式版本
	CurrentVersion = 2

	// Key 是当前偏好文档的存储 key
	Key = "look.prefs.v2"

	// LegacyKey 是旧版扁平计数的存储 key，只读
	LegacyKey = "look.prefs.v1"
)

var (
	// ErrUnsupportedVersion 表示文档版本未知
	ErrUnsupportedVersion = core.NewDomainError(core.ModulePrefs, core.ErrorCodeNotSupported, "prefs: unsupported document version")

	// ErrCorruptDocument 表示文档无法解析
	ErrCorruptDocument = core.NewDomainError(core.ModulePrefs, core.ErrorCodeCorrupt, "prefs: corrupt document")
)

// Document 是持久化文档的两种形态之一：*LegacyDocument 或 *V2Document。
// 通过 Upgrade 单向转换为 State。
type Document interface {
	Version() int
}

// LegacyDocument 是旧版扁平计数：{"cat": {"shoes": 3}, "store": {...}}。
type LegacyDocument struct {
	Counts map[core.Facet]map[string]float64
}

func (*LegacyDocument) Version() int { return 1 }

// V2Document 是带时间戳的当前格式。
type V2Document struct {
	State *State
}

func (*V2Document) Version() int { return CurrentVersion }

type wireStat struct {
	W float64 `json:"w"`
	T int64   `json:"t"`
	D int64   `json:"d,omitempty"`
}

// wireDoc 的字段顺序即序列化顺序。
type wireDoc struct {
	Version int                 `json:"version"`
	Cat     map[string]wireStat `json:"cat"`
	Store   map[string]wireStat `json:"store"`
	Gender  map[string]wireStat `json:"gender"`
	Size    map[string]wireStat `json:"size"`
	Price   map[string]wireStat `json:"price"`
	ETA     map[string]wireStat `json:"eta"`
	Product map[string]wireStat `json:"product"`
}

func (w *wireDoc) tables() map[core.Facet]*map[string]wireStat {
	return map[core.Facet]*map[string]wireStat{
		core.FacetCategory: &w.Cat,
		core.FacetStore:    &w.Store,
		core.FacetGender:   &w.Gender,
		core.FacetSize:     &w.Size,
		core.FacetPrice:    &w.Price,
		core.FacetETA:      &w.ETA,
		core.FacetProduct:  &w.Product,
	}
}

// Encode 将 State 序列化为当前版本的 JSON 文档。
func Encode(s *State) ([]byte, error) {
	doc := wireDoc{Version: CurrentVersion}
	tables := doc.tables()
	for _, f := range core.AllFacets {
		src := s.Facets[f]
		dst := make(map[string]wireStat, len(src))
		for k, st := range src {
			if st == nil {
				continue
			}
			dst[k] = wireStat{W: st.Weight, T: toMillis(st.LastUpdated), D: toMillis(st.DecayedAt)}
		}
		*tables[f] = dst
	}
	return json.Marshal(&doc)
}

// Decode 按 version 字段识别文档形态：
// 缺省或 0/1 为旧版扁平计数，2 为当前格式，其他返回 ErrUnsupportedVersion。
func Decode(raw []byte) (Document, error) {
	var head map[string]json.RawMessage
	if err := json.Unmarshal(raw, &head); err != nil || head == nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	version := 0
	if v, ok := head["version"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &version); err != nil {
			return nil, fmt.Errorf("%w: version: %v", ErrCorruptDocument, err)
		}
	}

	switch version {
	case 0, 1:
		return decodeLegacy(head)
	case CurrentVersion:
		return decodeV2(raw)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

func decodeLegacy(head map[string]json.RawMessage) (*LegacyDocument, error) {
	doc := &LegacyDocument{Counts: make(map[core.Facet]map[string]float64)}
	for name, raw := range head {
		f, ok := core.ParseFacet(name)
		if !ok {
			continue
		}
		var counts map[string]float64
		if err := json.Unmarshal(raw, &counts); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, name, err)
		}
		doc.Counts[f] = counts
	}
	return doc, nil
}

func decodeV2(raw []byte) (*V2Document, error) {
	var doc wireDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	s := NewState()
	for f, tbl := range doc.tables() {
		for k, ws := range *tbl {
			key := core.NormalizeKey(k)
			if key == "" {
				continue
			}
			s.merge(f, key, KeyStat{
				Weight:      sanitizeWeight(ws.W),
				LastUpdated: fromMillis(ws.T),
				DecayedAt:   fromMillis(ws.D),
			})
		}
	}
	return &V2Document{State: s}, nil
}

// Upgrade 将任意形态的文档转换为 State。
// 旧版计数没有时间信息，转换后时间戳为零值，不参与衰减。
func Upgrade(doc Document) *State {
	switch d := doc.(type) {
	case *V2Document:
		if d.State == nil {
			return NewState()
		}
		d.State.ensure()
		return d.State
	case *LegacyDocument:
		s := NewState()
		for f, counts := range d.Counts {
			for k, w := range counts {
				key := core.NormalizeKey(k)
				if key == "" {
					continue
				}
				s.merge(f, key, KeyStat{Weight: sanitizeWeight(w)})
			}
		}
		return s
	default:
		return NewState()
	}
}

func sanitizeWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
