package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/bird-count/internal/config"
	"github.com/palemoky/bird-count/internal/game/level"
	"github.com/palemoky/bird-count/internal/game/room"
	"github.com/palemoky/bird-count/internal/gateway"
	"github.com/palemoky/bird-count/internal/server/handler"
	"github.com/palemoky/bird-count/internal/server/storage"
)

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	redis       *redis.Client // 未启用时为 nil
	roomStore   *storage.RedisStore
	leaderboard *storage.Leaderboard
	gateway     *gateway.Gateway
	roomManager *room.RoomManager
	handler     *handler.Handler
	upgrader    websocket.Upgrader
	httpServer  *http.Server

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数
	conns          sync.WaitGroup

	// 维护模式
	maintenanceMode atomic.Bool
	shutdownOnce    sync.Once
	done            chan struct{}
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// 测试 Redis 连接
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}

		// 快照只用于观察，上次运行残留的直接清理
		if n, err := storage.NewRedisStore(rdb, 0).PurgeRooms(ctx); err != nil {
			log.Printf("⚠️ 清理残留房间快照失败: %v", err)
		} else if n > 0 {
			log.Printf("🧹 已清理 %d 个残留房间快照", n)
		}
	}

	s := &Server{
		config:      cfg,
		redis:       rdb,
		roomStore:   storage.NewRedisStore(rdb, cfg.Game.RoomSnapshotTTLDuration()),
		leaderboard: storage.NewLeaderboard(rdb),
		gateway:     gateway.New(),
		// 初始化安全组件
		rateLimiter: NewRateLimiter(cfg.Security.RateLimit),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit),
		// 初始化连接控制
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		done:           make(chan struct{}),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
	}

	deps := room.ManagerDeps{
		Gateway: s.gateway,
		Levels:  level.NewRandomGenerator(cfg.Game.GridRows, cfg.Game.GridCols),
		Game:    cfg.Game,
	}
	if rdb != nil {
		deps.Store = s.roomStore
		deps.Recorder = s.leaderboard
	}
	s.roomManager = room.NewRoomManager(deps)

	s.handler = handler.NewHandler(handler.HandlerDeps{
		RoomManager:   s.roomManager,
		IsMaintenance: s.IsMaintenanceMode,
	})

	log.Printf("🔒 安全配置: 连接限制=%d/s, 消息限制=%d/s, 最大连接数=%d",
		cfg.Security.RateLimit.MaxPerSecond, cfg.Security.MessageLimit.MaxPerSecond, cfg.Server.MaxConnections)

	return s, nil
}

// Router 构建 HTTP 路由
func (s *Server) Router() http.Handler {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Printf("[PANIC] %s %s: %v", r.Method, r.URL.Path, i)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	mux.GET("/ws", s.handleWebSocket)
	mux.GET("/health", s.handleHealth)
	mux.GET("/rooms", s.handleRoomList)
	mux.GET("/rooms/:room", s.handleRoomDetail)
	mux.GET("/rooms/:room/qr", s.handleRoomQR)
	mux.GET("/leaderboard", s.handleLeaderboard)
	mux.GET("/players/:name/stats", s.handlePlayerStats)

	if s.config.Server.Profile {
		registerProfileHandlers(mux)
	}

	return mux
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// 启动监控 goroutine
	go s.monitorStats()

	log.Printf("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RoomManager 返回房间管理器
func (s *Server) RoomManager() *room.RoomManager {
	return s.roomManager
}

// GetOnlineCount 获取在线人数
func (s *Server) GetOnlineCount() int {
	return s.gateway.OnlineCount()
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.gateway.Register(client)
}

// unregisterClient 注销客户端
func (s *Server) unregisterClient(client *Client) {
	if s.gateway.Client(client.ID) == nil {
		return
	}
	s.gateway.Unregister(client.ID)
	log.Printf("❌ 连接 %s 已断开", client.ID)
}
