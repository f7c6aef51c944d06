package config

import (
	"maps"

	"github.com/matheusschuckar/look-pro/pipeline"
)

// 运行期资源在 node 配置中的保留 key，由 Build 注入，YAML 中不应出现。
const (
	ResourceStore = "_store" // core.Store，供 filter.blocklist 读取屏蔽列表
)

// Build 校验配置并用 DefaultFactory 构建 Pipeline。
// resources 会被注入每个 node 的配置（不覆盖已有 key），用于传递存储等运行期依赖。
func Build(cfg *pipeline.Config, resources map[string]any) (*pipeline.Pipeline, error) {
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	injected := &pipeline.Config{}
	injected.Pipeline.Name = cfg.Pipeline.Name
	injected.Pipeline.Nodes = make([]pipeline.NodeConfig, 0, len(cfg.Pipeline.Nodes))
	for _, nc := range cfg.Pipeline.Nodes {
		c := maps.Clone(nc.Config)
		if c == nil {
			c = make(map[string]any, len(resources))
		}
		for k, v := range resources {
			if _, ok := c[k]; !ok {
				c[k] = v
			}
		}
		injected.Pipeline.Nodes = append(injected.Pipeline.Nodes, pipeline.NodeConfig{Type: nc.Type, Config: c})
	}
	return injected.BuildPipeline(DefaultFactory())
}

// LoadFile 读取 YAML/JSON 配置文件并构建 Pipeline。
func LoadFile(path string, resources map[string]any) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Build(cfg, resources)
}
