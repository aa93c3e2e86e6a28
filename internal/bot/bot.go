// Package bot 实现一个脚本化的数鸟玩家，用于联调和压测。
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand/v2"
	"time"

	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
)

// minTimeTaken 上报用时的下限（秒），服务端拒绝非正数
const minTimeTaken = 0.001

// ErrDisconnected 对局结束前连接已断开
var ErrDisconnected = errors.New("bot: disconnected before game over")

// Conn 机器人使用的连接，transport.Client 实现了该接口
type Conn interface {
	Send(msgType protocol.MessageType, payload any) error
	Receive() <-chan *protocol.Message
}

// Options 机器人配置
type Options struct {
	Name      string
	Room      string
	Accuracy  float64       // 精确命中的概率 [0, 1]
	ThinkMin  time.Duration // 每回合思考时间下限
	ThinkMax  time.Duration // 每回合思考时间上限
	StepDelay time.Duration // 两次 updateCount 之间的间隔
	Steps     int           // 锁定前发送 updateCount 的次数
	Seed      uint64        // 0 表示随机
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		Name:      "Bot",
		Accuracy:  0.8,
		ThinkMin:  time.Second,
		ThinkMax:  3 * time.Second,
		StepDelay: 300 * time.Millisecond,
		Steps:     3,
	}
}

// Bot 脚本化玩家
type Bot struct {
	conn  Conn
	opts  Options
	rng   *rand.Rand
	ready bool
}

// New 创建机器人
func New(conn Conn, opts Options) *Bot {
	if opts.Accuracy < 0 {
		opts.Accuracy = 0
	}
	if opts.Accuracy > 1 {
		opts.Accuracy = 1
	}
	if opts.ThinkMax < opts.ThinkMin {
		opts.ThinkMax = opts.ThinkMin
	}
	if opts.Steps < 0 {
		opts.Steps = 0
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Bot{
		conn: conn,
		opts: opts,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Run 加入房间并持续游戏，收到 gameOver 后返回终局结果
func (b *Bot) Run(ctx context.Context) (*protocol.GameOverPayload, error) {
	if err := b.conn.Send(protocol.MsgJoinGame, protocol.JoinGamePayload{
		Name: b.opts.Name,
		Room: b.opts.Room,
	}); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case msg, ok := <-b.conn.Receive():
			if !ok {
				return nil, ErrDisconnected
			}

			switch msg.Type {
			case protocol.MsgUpdatePlayerList:
				if err := b.handlePlayerList(msg); err != nil {
					return nil, err
				}

			case protocol.MsgPartnerLeft:
				// 对局中断后房间回到大厅，需要重新准备
				b.ready = false
				log.Printf("👋 [%s] 对手离开，等待新对手", b.opts.Name)

			case protocol.MsgStartGame, protocol.MsgNextRoundData:
				level, err := codec.ParsePayload[protocol.LevelData](msg)
				if err != nil {
					return nil, err
				}
				if err := b.playRound(ctx, *level); err != nil {
					return nil, err
				}

			case protocol.MsgGameOver:
				result, err := codec.ParsePayload[protocol.GameOverPayload](msg)
				if err != nil {
					return nil, err
				}
				return result, nil

			case protocol.MsgError:
				var text string
				_ = json.Unmarshal(msg.Payload, &text)
				log.Printf("⚠️ [%s] 服务器错误: %s", b.opts.Name, text)
			}
		}
	}
}

// handlePlayerList 房间满员后发送准备
func (b *Bot) handlePlayerList(msg *protocol.Message) error {
	players, err := codec.ParsePayload[[]protocol.PlayerInfo](msg)
	if err != nil {
		return err
	}
	if b.ready || len(*players) < 2 {
		return nil
	}
	b.ready = true
	return b.conn.Send(protocol.MsgPlayerReady, nil)
}

// playRound 思考、逐步上报计数后锁定答案
func (b *Bot) playRound(ctx context.Context, level protocol.LevelData) error {
	start := time.Now()
	guess := b.Guess(level.TargetCount)

	if err := sleep(ctx, b.thinkTime()); err != nil {
		return err
	}

	for i := 1; i <= b.opts.Steps; i++ {
		if err := b.conn.Send(protocol.MsgUpdateCount, guess*i/b.opts.Steps); err != nil {
			return err
		}
		if err := sleep(ctx, b.opts.StepDelay); err != nil {
			return err
		}
	}

	log.Printf("🐦 [%s] 第 %d 回合锁定 %d（实际 %d）", b.opts.Name, level.Round, guess, level.TargetCount)

	return b.conn.Send(protocol.MsgLockIn, protocol.LockInPayload{
		Count:       guess,
		TimeTaken:   max(time.Since(start).Seconds(), minTimeTaken),
		ActualCount: level.TargetCount,
	})
}

// Guess 按命中率给出答案，未命中时偏离 1~2
func (b *Bot) Guess(target int) int {
	if b.rng.Float64() < b.opts.Accuracy {
		return target
	}
	offset := 1 + b.rng.IntN(2)
	if b.rng.IntN(2) == 0 || target-offset < 0 {
		return target + offset
	}
	return target - offset
}

func (b *Bot) thinkTime() time.Duration {
	spread := b.opts.ThinkMax - b.opts.ThinkMin
	if spread <= 0 {
		return b.opts.ThinkMin
	}
	return b.opts.ThinkMin + time.Duration(b.rng.Int64N(int64(spread)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
