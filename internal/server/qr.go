package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/palemoky/bird-count/internal/game/room"
)

// 移动端友好的尺寸
const qrSize = 320

// ShareURL 返回房间分享链接 <public_url>/#<room>
func ShareURL(publicURL, roomKey string) string {
	return strings.TrimSuffix(publicURL, "/") + "/#" + url.PathEscape(roomKey)
}

// handleRoomQR 生成房间分享链接的 PNG 二维码
func (s *Server) handleRoomQR(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	key, err := room.NormalizeRoomKey(ps.ByName("room"))
	if err != nil {
		http.Error(w, "invalid room", http.StatusBadRequest)
		return
	}

	png, err := qrcode.Encode(ShareURL(s.config.Server.PublicURL, key), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}
