// Package level 生成每回合的关卡参数（目标数量、干扰物数量和摆放位置）。
package level

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/palemoky/bird-count/internal/protocol"
)

const (
	defaultRows = 6
	defaultCols = 5

	// 网格坐标（百分比）：x = originX + col*stepX, y = originY + row*stepY
	originX = 10
	originY = 10
	stepX   = 20
	stepY   = 15
)

// Generator 关卡生成器，可被多个房间并发使用
type Generator struct {
	rows, cols int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator 创建固定种子的生成器（用于测试复现）
func NewGenerator(seed uint64, rows, cols int) *Generator {
	if rows <= 0 {
		rows = defaultRows
	}
	if cols <= 0 {
		cols = defaultCols
	}
	return &Generator{
		rows: rows,
		cols: cols,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// NewRandomGenerator 创建以当前时间为种子的生成器
func NewRandomGenerator(rows, cols int) *Generator {
	return NewGenerator(uint64(time.Now().UnixNano()), rows, cols)
}

// Capacity 网格可容纳的物体总数
func (g *Generator) Capacity() int {
	return g.rows * g.cols
}

// TargetRange 返回某回合目标数量的取值区间 [min, max]
func TargetRange(round int) (lo, hi int) {
	return 3 + round*2, 6 + round*4
}

// DecoyCount 返回某回合的干扰物数量
func DecoyCount(round int) int {
	return 2 + round
}

// Generate 生成指定回合的关卡
func (g *Generator) Generate(round int) protocol.LevelData {
	if round < 1 {
		round = 1
	}

	lo, hi := TargetRange(round)
	decoys := DecoyCount(round)

	g.mu.Lock()
	target := lo + g.rng.IntN(hi-lo+1)
	spots := g.shuffledGrid()
	g.mu.Unlock()

	// 超出网格容量时先减少干扰物，再减少目标
	capacity := len(spots)
	if target > capacity {
		target = capacity
	}
	if target+decoys > capacity {
		decoys = capacity - target
	}

	return protocol.LevelData{
		TargetCount: target,
		DecoyCount:  decoys,
		Placements:  spots,
		Round:       round,
	}
}

// shuffledGrid 生成打乱顺序的完整网格坐标，调用方需持有 g.mu
func (g *Generator) shuffledGrid() []protocol.Spot {
	spots := make([]protocol.Spot, 0, g.rows*g.cols)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			spots = append(spots, protocol.Spot{X: originX + c*stepX, Y: originY + r*stepY})
		}
	}
	g.rng.Shuffle(len(spots), func(i, j int) {
		spots[i], spots[j] = spots[j], spots[i]
	})
	return spots
}
