// Package model 提供排序打分模型。默认是无 sigmoid 的线性加权和。
package model

// RankModel 对一组命名特征打分，分数只要求可比较。
type RankModel interface {
	Name() string
	Predict(features map[string]float64) (float64, error)
}

// Scalable 是可以直接放大某个特征权重的模型（探索会话放大趋势权重时使用）。
// 未实现时调用方改为放大特征值本身。
type Scalable interface {
	RankModel
	Scaled(feature string, factor float64) RankModel
}

// Func 把普通函数适配为 RankModel。
type Func struct {
	ModelName string
	Fn        func(features map[string]float64) (float64, error)
}

func (f Func) Name() string { return f.ModelName }

func (f Func) Predict(features map[string]float64) (float64, error) {
	return f.Fn(features)
}
