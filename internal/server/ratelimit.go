package server

import (
	"log"
	"sync"
	"time"

	"github.com/palemoky/bird-count/internal/config"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 10 * time.Minute

	// 单个连接超速警告超过该次数后断开
	maxRateWarnings = 5
)

// window 固定窗口计数器
type window struct {
	size  time.Duration
	start time.Time
	count int
}

// hit 记录一次请求并返回窗口内的累计次数
func (w *window) hit(now time.Time) int {
	if now.Sub(w.start) >= w.size {
		w.start = now
		w.count = 0
	}
	w.count++
	return w.count
}

// ipRecord 单个 IP 的连接计数
type ipRecord struct {
	perSecond   window
	perMinute   window
	lastSeen    time.Time
	bannedUntil time.Time
}

// RateLimiter 新连接速率限制（按 IP），超限后封禁一段时间
type RateLimiter struct {
	maxPerSecond int
	maxPerMinute int
	banDuration  time.Duration

	records map[string]*ipRecord
	mu      sync.Mutex
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter 按配置创建连接速率限制器，并启动过期记录清理
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		maxPerSecond: cfg.MaxPerSecond,
		maxPerMinute: cfg.MaxPerMinute,
		banDuration:  cfg.BanDurationTime(),
		records:      make(map[string]*ipRecord),
		now:          time.Now,
		stop:         make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow 记录一次连接尝试，返回是否放行
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rec, ok := rl.records[ip]
	if !ok {
		rec = &ipRecord{
			perSecond: window{size: time.Second},
			perMinute: window{size: time.Minute},
		}
		rl.records[ip] = rec
	}
	rec.lastSeen = now

	if now.Before(rec.bannedUntil) {
		return false
	}

	second := rec.perSecond.hit(now)
	minute := rec.perMinute.hit(now)
	if second <= rl.maxPerSecond && minute <= rl.maxPerMinute {
		return true
	}

	// 封禁结束后重新计数
	rec.bannedUntil = now.Add(rl.banDuration)
	rec.perSecond = window{size: time.Second}
	rec.perMinute = window{size: time.Minute}
	log.Printf("⚠️ IP %s 连接过于频繁，封禁 %v", ip, rl.banDuration)
	return false
}

// IsBanned 检查 IP 是否处于封禁中
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.records[ip]
	return ok && rl.now().Before(rec.bannedUntil)
}

// Stop 停止清理协程
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.purge(rl.now())
		}
	}
}

// purge 删除长时间无请求且未封禁的记录
func (rl *RateLimiter) purge(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, rec := range rl.records {
		if now.Sub(rec.lastSeen) > limiterIdleTTL && !now.Before(rec.bannedUntil) {
			delete(rl.records, ip)
		}
	}
}

// Verdict 消息限流结果
type Verdict int

const (
	VerdictAllow      Verdict = iota // 正常处理
	VerdictThrottle                  // 丢弃该消息并提示
	VerdictDisconnect                // 多次超速，断开连接
)

// connRecord 单个连接的消息计数
type connRecord struct {
	perSecond window
	warnings  int
}

// MessageRateLimiter 已建立连接的消息速率限制
// updateCount 在计数过程中高频发送，阈值需要留有余量
type MessageRateLimiter struct {
	maxPerSecond int
	maxWarnings  int

	records map[string]*connRecord
	mu      sync.Mutex
	now     func() time.Time
}

// NewMessageRateLimiter 按配置创建消息速率限制器
func NewMessageRateLimiter(cfg config.MessageLimitConfig) *MessageRateLimiter {
	return &MessageRateLimiter{
		maxPerSecond: cfg.MaxPerSecond,
		maxWarnings:  maxRateWarnings,
		records:      make(map[string]*connRecord),
		now:          time.Now,
	}
}

// Check 记录一条消息并给出处理结果
func (ml *MessageRateLimiter) Check(connID string) Verdict {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	rec, ok := ml.records[connID]
	if !ok {
		rec = &connRecord{perSecond: window{size: time.Second}}
		ml.records[connID] = rec
	}

	if rec.perSecond.hit(ml.now()) <= ml.maxPerSecond {
		return VerdictAllow
	}

	rec.warnings++
	if rec.warnings > ml.maxWarnings {
		return VerdictDisconnect
	}
	return VerdictThrottle
}

// Warnings 返回连接的超速次数
func (ml *MessageRateLimiter) Warnings(connID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if rec, ok := ml.records[connID]; ok {
		return rec.warnings
	}
	return 0
}

// Forget 连接断开后删除记录
func (ml *MessageRateLimiter) Forget(connID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.records, connID)
}
