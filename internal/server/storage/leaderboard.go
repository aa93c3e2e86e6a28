package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/types"
)

const (
	// Redis key
	playerStatsKey   = "player:stats:"
	leaderboardKey   = "leaderboard:score"
	dailyLeaderboard = "leaderboard:daily:"

	dailyExpiration = 48 * time.Hour

	// DefaultLeaderboardLimit 默认返回条数
	DefaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// PlayerStats 玩家统计数据（以昵称为标识，无账号体系）
type PlayerStats struct {
	PlayerName string `json:"player_name"`
	TotalGames int    `json:"total_games"`
	Wins       int    `json:"wins"`
	BestScore  int    `json:"best_score"`
}

// Leaderboard 排行榜，按单局最高总分排序，实现 types.ScoreRecorder
// client 为 nil 时所有操作均为空操作
type Leaderboard struct {
	redis *redis.Client
}

// NewLeaderboard 创建排行榜
func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{redis: client}
}

func (lb *Leaderboard) enabled() bool {
	return lb != nil && lb.redis != nil
}

// RecordGame 记录一局结束后的成绩
func (lb *Leaderboard) RecordGame(ctx context.Context, results []types.GameResult) error {
	if !lb.enabled() || len(results) == 0 {
		return nil
	}

	dailyKey := dailyLeaderboard + time.Now().Format("2006-01-02")

	_, err := lb.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, r := range results {
			key := playerStatsKey + r.PlayerName
			pipe.HIncrBy(ctx, key, "games", 1)
			if r.Won {
				pipe.HIncrBy(ctx, key, "wins", 1)
			}

			member := redis.Z{Score: float64(r.TotalScore), Member: r.PlayerName}
			pipe.ZAddGT(ctx, leaderboardKey, member)
			pipe.ZAddGT(ctx, dailyKey, member)
		}
		pipe.Expire(ctx, dailyKey, dailyExpiration)
		return nil
	})
	return err
}

// GetPlayerStats 获取玩家统计，不存在时返回 nil
func (lb *Leaderboard) GetPlayerStats(ctx context.Context, name string) (*PlayerStats, error) {
	if !lb.enabled() {
		return nil, nil
	}

	data, err := lb.redis.HGetAll(ctx, playerStatsKey+name).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	stats := &PlayerStats{PlayerName: name}
	stats.TotalGames, _ = strconv.Atoi(data["games"])
	stats.Wins, _ = strconv.Atoi(data["wins"])

	best, err := lb.redis.ZScore(ctx, leaderboardKey, name).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	stats.BestScore = int(best)
	return stats, nil
}

// TopScores 获取总榜前 limit 名（从高到低）
func (lb *Leaderboard) TopScores(ctx context.Context, limit int) ([]protocol.LeaderboardEntry, error) {
	return lb.top(ctx, leaderboardKey, limit)
}

// TopDailyScores 获取今日榜前 limit 名
func (lb *Leaderboard) TopDailyScores(ctx context.Context, limit int) ([]protocol.LeaderboardEntry, error) {
	return lb.top(ctx, dailyLeaderboard+time.Now().Format("2006-01-02"), limit)
}

func (lb *Leaderboard) top(ctx context.Context, key string, limit int) ([]protocol.LeaderboardEntry, error) {
	if !lb.enabled() {
		return []protocol.LeaderboardEntry{}, nil
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, maxLeaderboardLimit)

	results, err := lb.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]protocol.LeaderboardEntry, 0, len(results))
	for i, z := range results {
		name, _ := z.Member.(string)
		entries = append(entries, protocol.LeaderboardEntry{
			Rank:       i + 1,
			PlayerName: name,
			Score:      int(z.Score),
		})
	}
	return entries, nil
}
