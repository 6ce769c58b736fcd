package community

import (
	"strconv"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/middleware"
	"photoshared-backend/internal/session"

	"github.com/gin-gonic/gin"
)

// FeedHandler 动态页和搜索页，状态保存在每个登录会话自己的视图中
type FeedHandler struct {
	sessions *session.Manager
}

func NewFeedHandler(sessions *session.Manager) *FeedHandler {
	return &FeedHandler{sessions}
}

func (h *FeedHandler) GetFeed(c *gin.Context) {
	feed := h.sessions.Feed(middleware.CurrentIdentity(c), sessionKey(c))
	snap, err := feed.Load(c.Request.Context())
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, snap, "")
}

func (h *FeedHandler) ToggleFeedLike(c *gin.Context) {
	feed := h.sessions.Feed(middleware.CurrentIdentity(c), sessionKey(c))
	state, err := feed.ToggleLike(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, state, "")
}

// UnfollowFromFeed 取消关注并立即从动态中移除该作者
func (h *FeedHandler) UnfollowFromFeed(c *gin.Context) {
	var uri handleURI
	if err := c.ShouldBindUri(&uri); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户名", err))
		return
	}

	feed := h.sessions.Feed(middleware.CurrentIdentity(c), sessionKey(c))
	snap, err := feed.Unfollow(c.Request.Context(), uri.Handle)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, snap, "已取消关注")
}

// sessionKey 视图按登录会话区分，同一用户的不同设备互不影响
func sessionKey(c *gin.Context) string {
	return session.SessionKey(middleware.CurrentToken(c))
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *FeedHandler) Search(c *gin.Context) {
	browse := h.sessions.Browse(middleware.CurrentIdentity(c), sessionKey(c))
	snap, err := browse.Search(c.Request.Context(), c.Query("q"), pageParam(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, snap, "")
}

func (h *FeedHandler) Discover(c *gin.Context) {
	browse := h.sessions.Browse(middleware.CurrentIdentity(c), sessionKey(c))
	snap, err := browse.Discover(c.Request.Context(), pageParam(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, snap, "")
}

func (h *FeedHandler) ToggleBrowseLike(c *gin.Context) {
	browse := h.sessions.Browse(middleware.CurrentIdentity(c), sessionKey(c))
	state, err := browse.ToggleLike(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, state, "")
}

func (h *FeedHandler) ToggleBrowseFollow(c *gin.Context) {
	var uri handleURI
	if err := c.ShouldBindUri(&uri); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户名", err))
		return
	}

	browse := h.sessions.Browse(middleware.CurrentIdentity(c), sessionKey(c))
	following, err := browse.ToggleFollow(c.Request.Context(), uri.Handle)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"following": following}, "")
}
