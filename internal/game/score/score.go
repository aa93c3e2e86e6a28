// Package score 计算单个玩家的回合得分。
package score

import (
	"math"

	"github.com/palemoky/bird-count/internal/apperrors"
)

const (
	// BasePoints 完美答案在 1 秒内锁定可获得的分数
	BasePoints = 1000
	// ImperfectFactor 非完美答案的准确度折扣
	ImperfectFactor = 0.5
)

// Submission 玩家本回合提交的答案（客户端数据，不可信）
type Submission struct {
	Count       int
	TimeTaken   float64 // 秒
	ActualCount int
}

// Result 单个提交的计分结果
type Result struct {
	RoundScore int
	IsPerfect  bool
	Accuracy   float64
}

// Validate 拒绝无法计分的提交
func (s Submission) Validate() error {
	if math.IsNaN(s.TimeTaken) || math.IsInf(s.TimeTaken, 0) || s.TimeTaken <= 0 {
		return apperrors.ErrInvalidSubmission
	}
	if s.Count < 0 || s.ActualCount < 0 {
		return apperrors.ErrInvalidSubmission
	}
	return nil
}

// Accuracy 1 - |count-actual|/actual；actual 为 0 时定义为 1
func Accuracy(count, actual int) float64 {
	if actual == 0 {
		return 1
	}
	diff := math.Abs(float64(count - actual))
	return 1 - diff/float64(actual)
}

// Compute 计算回合得分，minTimeTaken 为用时下限（秒），用于约束得分上界
func Compute(s Submission, minTimeTaken float64) Result {
	timeTaken := s.TimeTaken
	if timeTaken < minTimeTaken {
		timeTaken = minTimeTaken
	}

	isPerfect := s.Count == s.ActualCount
	accuracy := Accuracy(s.Count, s.ActualCount)

	factor := 1.0
	if !isPerfect {
		factor = accuracy * ImperfectFactor
	}

	raw := math.Round(BasePoints / timeTaken * factor)
	return Result{
		RoundScore: int(math.Max(0, raw)),
		IsPerfect:  isPerfect,
		Accuracy:   accuracy,
	}
}
