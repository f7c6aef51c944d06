package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 Pipeline 的配置结构（支持 YAML/JSON）。
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"pipeline" json:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type"`     // filter.facet / feature.affinity / rank.linear / rerank.explore 等
	Config map[string]any `yaml:"config" json:"config"` // Node 特定配置
}

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

// LoadFromJSON 从 JSON 文件加载 Pipeline 配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseJSON(data)
}

// LoadFile 按扩展名选择 YAML 或 JSON。
func LoadFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadFromJSON(path)
	default:
		return LoadFromYAML(path)
	}
}

// ParseYAML 解析 YAML 内容。
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// ParseJSON 解析 JSON 内容。
func ParseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// BuildPipeline 根据配置构建 Pipeline（需要 NodeFactory 注册 Node 构建器）。
// factory 在独立的 config 包中，避免循环依赖。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))
	for i, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node #%d %s: %w", i, nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Nodes: nodes}, nil
}

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{
		builders: make(map[string]NodeBuilder),
	}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	if config == nil {
		config = map[string]any{}
	}
	return builder(config)
}
