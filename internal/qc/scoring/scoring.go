// Package scoring 检验评分与统计的纯计算逻辑
//
// 两套口径并存且都被消费：
//   - 加权得分（Compute）：按权重算，NA计入分母
//   - 完成度统计（Tally）：按条数算，NA全部剔除
package scoring

import (
	"math"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
)

// Item 参与计算的检验项字段
type Item struct {
	Status    string
	Weight    float64
	Mandatory bool
}

// Result 单张检验单的计算结果
type Result struct {
	Score           float64 `json:"score"`
	MandatoryFailed bool    `json:"mandatory_failed"`
}

// FromItems 从检验项实体提取计算输入
func FromItems(items []entity.InspectionItem) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, Item{
			Status:    it.Status,
			Weight:    it.Weight,
			Mandatory: it.IsMandatory,
		})
	}
	return out
}

// Compute 计算加权得分（0-100，保留1位小数，四舍五入）
// 分母包含全部检验项（含pending和na）；空集合返回0，不会出错
func Compute(items []Item) Result {
	var totalWeight, okWeight float64
	res := Result{}

	for _, it := range items {
		totalWeight += it.Weight
		if it.Status == entity.ItemStatusOK {
			okWeight += it.Weight
		}
		if it.Mandatory && it.Status == entity.ItemStatusNotOK {
			res.MandatoryFailed = true
		}
	}

	if totalWeight > 0 {
		res.Score = math.Round(okWeight/totalWeight*1000) / 10
	}
	return res
}

// Tally 按条数的完成度统计，NA项不计入任何口径
type Tally struct {
	TotalValid int `json:"total_valid"` // status != na
	TotalOK    int `json:"total_ok"`
	TotalDone  int `json:"total_done"` // ok + not_ok
	NotOK      int `json:"not_ok"`
}

// Add 累加一批检验项
func (t *Tally) Add(items []Item) {
	for _, it := range items {
		switch it.Status {
		case entity.ItemStatusNA:
			continue
		case entity.ItemStatusOK:
			t.TotalOK++
			t.TotalDone++
			t.TotalValid++
		case entity.ItemStatusNotOK:
			t.NotOK++
			t.TotalDone++
			t.TotalValid++
		default:
			t.TotalValid++
		}
	}
}

// AverageScore 质量百分比 = ok / valid，取整
func (t Tally) AverageScore() int {
	if t.TotalValid == 0 {
		return 0
	}
	return int(math.Round(float64(t.TotalOK) / float64(t.TotalValid) * 100))
}

// Progress 完成度百分比 = (ok + not_ok) / valid，取整
func (t Tally) Progress() int {
	if t.TotalValid == 0 {
		return 0
	}
	return int(math.Round(float64(t.TotalDone) / float64(t.TotalValid) * 100))
}

// Round1 统一的1位小数四舍五入
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
