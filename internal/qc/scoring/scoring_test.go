package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
)

func TestComputeWeightedScore(t *testing.T) {
	items := []Item{
		{Status: entity.ItemStatusOK, Weight: 3},
		{Status: entity.ItemStatusNotOK, Weight: 1},
		{Status: entity.ItemStatusPending, Weight: 1},
	}

	res := Compute(items)
	// ok=3, total=5 → 60.0
	assert.Equal(t, 60.0, res.Score)
	assert.False(t, res.MandatoryFailed)
}

func TestComputeRounding(t *testing.T) {
	// ok=1, total=3 → 33.333... → 33.3
	res := Compute([]Item{
		{Status: entity.ItemStatusOK, Weight: 1},
		{Status: entity.ItemStatusNotOK, Weight: 1},
		{Status: entity.ItemStatusNotOK, Weight: 1},
	})
	assert.Equal(t, 33.3, res.Score)

	// ok=2, total=3 → 66.666... → 66.7
	res = Compute([]Item{
		{Status: entity.ItemStatusOK, Weight: 1},
		{Status: entity.ItemStatusOK, Weight: 1},
		{Status: entity.ItemStatusNotOK, Weight: 1},
	})
	assert.Equal(t, 66.7, res.Score)
}

func TestComputeNACountsInDenominator(t *testing.T) {
	// 加权口径里na占用权重但不得分
	res := Compute([]Item{
		{Status: entity.ItemStatusOK, Weight: 1},
		{Status: entity.ItemStatusNA, Weight: 1},
	})
	assert.Equal(t, 50.0, res.Score)
}

func TestComputeMandatoryFailed(t *testing.T) {
	res := Compute([]Item{
		{Status: entity.ItemStatusOK, Weight: 9},
		{Status: entity.ItemStatusNotOK, Weight: 1, Mandatory: true},
	})
	assert.Equal(t, 90.0, res.Score)
	assert.True(t, res.MandatoryFailed)

	// 必检项合格不触发
	res = Compute([]Item{
		{Status: entity.ItemStatusOK, Weight: 1, Mandatory: true},
		{Status: entity.ItemStatusNotOK, Weight: 1},
	})
	assert.False(t, res.MandatoryFailed)
}

func TestComputeMandatoryFailedWithNA(t *testing.T) {
	items := []Item{
		{Status: entity.ItemStatusOK, Weight: 10, Mandatory: true},
		{Status: entity.ItemStatusNotOK, Weight: 5, Mandatory: true},
		{Status: entity.ItemStatusNA, Weight: 5},
	}

	res := Compute(items)
	assert.Equal(t, 50.0, res.Score)
	assert.True(t, res.MandatoryFailed)

	// 纯函数，重复计算结果一致
	assert.Equal(t, res, Compute(items))
}

func TestComputeEmpty(t *testing.T) {
	res := Compute(nil)
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.MandatoryFailed)

	// 全部na时总权重为正，得分0
	res = Compute([]Item{{Status: entity.ItemStatusNA, Weight: 2}})
	assert.Equal(t, 0.0, res.Score)
}

func TestTallyExcludesNA(t *testing.T) {
	var tally Tally
	tally.Add([]Item{
		{Status: entity.ItemStatusOK},
		{Status: entity.ItemStatusOK},
		{Status: entity.ItemStatusNotOK},
		{Status: entity.ItemStatusPending},
		{Status: entity.ItemStatusNA},
	})

	assert.Equal(t, 4, tally.TotalValid)
	assert.Equal(t, 2, tally.TotalOK)
	assert.Equal(t, 3, tally.TotalDone)
	assert.Equal(t, 1, tally.NotOK)
	assert.Equal(t, 50, tally.AverageScore())
	assert.Equal(t, 75, tally.Progress())
}

func TestTallyAccumulatesAcrossInspections(t *testing.T) {
	var tally Tally
	tally.Add([]Item{{Status: entity.ItemStatusOK}, {Status: entity.ItemStatusOK}})
	tally.Add([]Item{{Status: entity.ItemStatusNotOK}, {Status: entity.ItemStatusPending}})

	assert.Equal(t, 4, tally.TotalValid)
	assert.Equal(t, 2, tally.TotalOK)
	assert.Equal(t, 75, tally.Progress())
}

func TestTallyEmpty(t *testing.T) {
	var tally Tally
	assert.Equal(t, 0, tally.AverageScore())
	assert.Equal(t, 0, tally.Progress())

	// 只有na也按空处理
	tally.Add([]Item{{Status: entity.ItemStatusNA}})
	assert.Equal(t, 0, tally.AverageScore())
	assert.Equal(t, 0, tally.Progress())
}

func TestFromItems(t *testing.T) {
	items := FromItems([]entity.InspectionItem{
		{Status: entity.ItemStatusOK, Weight: 2.5, IsMandatory: true},
	})
	assert.Len(t, items, 1)
	assert.Equal(t, Item{Status: entity.ItemStatusOK, Weight: 2.5, Mandatory: true}, items[0])
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 66.7, Round1(66.666))
	assert.Equal(t, 33.3, Round1(33.333))
	assert.Equal(t, 80.0, Round1(80.0))
}
