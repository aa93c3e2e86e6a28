package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/palemoky/bird-count/internal/logger"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
	"github.com/palemoky/bird-count/internal/server/storage"
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// 获取真实客户端IP
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Printf("🔧 维护模式，拒绝新连接: %s", clientIP)
		http.Error(w, "Server is under maintenance, please try again later",
			http.StatusServiceUnavailable)
		return
	}

	// 连接数限制检查
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Printf("🚫 达到最大连接数限制 (%d), IP: %s", s.maxConnections, clientIP)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	// 速率限制检查
	if !s.rateLimiter.Allow(clientIP) {
		<-s.semaphore
		log.Printf("🚫 IP %s 请求过于频繁", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	// 来源验证在 upgrader.CheckOrigin 中完成
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-s.semaphore
		log.Printf("WebSocket 升级失败: %v (IP: %s, Origin: %s)", err, clientIP, r.Header.Get("Origin"))
		return
	}

	client := NewClient(s, conn, codec.ParseFormat(r.URL.Query().Get("codec")))
	client.IP = clientIP
	s.registerClient(client)

	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID: client.ID,
	}))

	log.Printf("✅ 连接 %s 已建立 (IP: %s)", client.ID, clientIP)

	// 启动客户端读写协程，读协程退出时释放连接名额
	s.conns.Add(1)
	go func() {
		defer s.conns.Done()
		defer func() { <-s.semaphore }()
		client.ReadPump()
	}()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if s.IsMaintenanceMode() {
		http.Error(w, "MAINTENANCE", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleRoomList 房间列表
func (s *Server) handleRoomList(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, s.roomManager.GetRoomList())
}

// handleRoomDetail 单个房间的实时快照
func (s *Server) handleRoomDetail(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	room := s.roomManager.GetRoom(ps.ByName("room"))
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, room.Snapshot())
}

// handleLeaderboard 排行榜，period=daily 返回今日榜，未启用 Redis 时返回空列表
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	limit := storage.DefaultLeaderboardLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var (
		entries []protocol.LeaderboardEntry
		err     error
	)
	switch query.Get("period") {
	case "", "all":
		entries, err = s.leaderboard.TopScores(r.Context(), limit)
	case "daily":
		entries, err = s.leaderboard.TopDailyScores(r.Context(), limit)
	default:
		http.Error(w, "invalid period", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.LogError("读取排行榜失败: %v", err)
		http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, entries)
}

// handlePlayerStats 按昵称查询玩家统计
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	stats, err := s.leaderboard.GetPlayerStats(r.Context(), ps.ByName("name"))
	if err != nil {
		logger.LogError("读取玩家统计失败: %v", err)
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	if stats == nil {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("写入响应失败: %v", err)
	}
}
