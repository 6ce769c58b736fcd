package user

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/middleware"
	"photoshared-backend/internal/session"
	"photoshared-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// liveCommand 客户端通过连接发起的个人主页操作
type liveCommand struct {
	Action      string `json:"action"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

type liveMessage struct {
	Type    string                `json:"type"`
	State   *session.ProfileState `json:"state,omitempty"`
	Code    errors.ErrorCode      `json:"code,omitempty"`
	Message string                `json:"message,omitempty"`
}

// LiveHandler 通过 WebSocket 推送个人主页的实时状态
type LiveHandler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func NewLiveHandler(sessions *session.Manager, allowedOrigin string) *LiveHandler {
	return &LiveHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Profile 打开个人主页视图，每次状态变化推送完整状态。连接断开时关闭视图。
func (h *LiveHandler) Profile(c *gin.Context) {
	id := middleware.CurrentIdentity(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view, err := h.sessions.OpenProfile(ctx, id, session.SessionKey(middleware.CurrentToken(c)))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	defer view.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		util.Logger.Warn("WebSocket 握手失败", zap.Error(err))
		return
	}
	defer conn.Close()

	util.Logger.Info("个人主页实时连接已建立", util.UID(id.UID))

	replies := make(chan liveMessage, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.readCommands(ctx, conn, view, replies)
	}()

	h.writeLoop(ctx, conn, view, replies)
	cancel()
	conn.Close()
	wg.Wait()
	util.Logger.Info("个人主页实时连接已关闭", util.UID(id.UID))
}

func (h *LiveHandler) writeLoop(ctx context.Context, conn *websocket.Conn, view *session.ProfileView, replies <-chan liveMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	state := view.State()
	if err := writeJSON(conn, liveMessage{Type: "state", State: &state}); err != nil {
		return
	}

	changes := view.Changes()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case _, ok := <-changes:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"), time.Now().Add(writeWait))
				return
			}
			state := view.State()
			if err := writeJSON(conn, liveMessage{Type: "state", State: &state}); err != nil {
				return
			}
		case msg := <-replies:
			if err := writeJSON(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) readCommands(ctx context.Context, conn *websocket.Conn, view *session.ProfileView, replies chan<- liveMessage) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd liveCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				util.Logger.Debug("读取实时连接消息失败", zap.Error(err))
			}
			return
		}

		if err := runCommand(ctx, view, cmd); err != nil {
			select {
			case replies <- errorMessage(err):
			case <-ctx.Done():
				return
			}
		}
	}
}

func runCommand(ctx context.Context, view *session.ProfileView, cmd liveCommand) error {
	switch cmd.Action {
	case "unlike":
		return view.UnlikeRecord(ctx, cmd.ID)
	case "deletePost":
		return view.DeletePost(ctx, cmd.ID)
	case "editDescription":
		_, err := view.EditDescription(ctx, cmd.ID, cmd.Description)
		return err
	case "unfollow":
		return view.Unfollow(ctx, cmd.ID)
	default:
		return errors.New(errors.ErrBadRequest, "未知的操作: "+cmd.Action)
	}
}

func errorMessage(err error) liveMessage {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return liveMessage{Type: "error", Code: appErr.Code, Message: appErr.Message}
	}
	return liveMessage{Type: "error", Code: errors.ErrInternal, Message: err.Error()}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
