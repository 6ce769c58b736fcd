package community

import (
	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/middleware"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/service"
	"photoshared-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handleURI struct {
	Handle string `uri:"handle" binding:"required,handle"`
}

type CommunityHandler struct {
	posts   *service.PostService
	likes   *service.LikeService
	follows *service.FollowService
}

func NewCommunityHandler(posts *service.PostService, likes *service.LikeService, follows *service.FollowService) *CommunityHandler {
	return &CommunityHandler{
		posts:   posts,
		likes:   likes,
		follows: follows,
	}
}

func (h *CommunityHandler) CreatePost(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		util.Logger.Warn("获取上传文件失败", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "请选择要上传的图片", err))
		return
	}

	data, contentType, err := util.ReadUpload(file)
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的图片文件", err))
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), middleware.CurrentIdentity(c), model.Upload{
		Filename:    file.Filename,
		ContentType: contentType,
		Data:        data,
	}, c.PostForm("description"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{"post": post}, "帖子创建成功")
}

func (h *CommunityHandler) GetPost(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"post": post}, "")
}

func (h *CommunityHandler) UpdatePost(c *gin.Context) {
	var updateData struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	post, err := h.posts.EditDescription(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), updateData.Description)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"post": post}, "帖子更新成功")
}

func (h *CommunityHandler) DeletePost(c *gin.Context) {
	if err := h.posts.DeletePost(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id")); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, nil, "帖子已删除")
}

// GetUserPosts 帖子标签页，只列出有图片地址的帖子，数量包含全部帖子
func (h *CommunityHandler) GetUserPosts(c *gin.Context) {
	posts, err := h.posts.ListByUser(c.Request.Context(), c.Param("uid"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{
		"posts": service.VisiblePosts(posts),
		"count": len(posts),
	}, "")
}

// LikePhoto 幂等点赞，请求体为目录图片
func (h *CommunityHandler) LikePhoto(c *gin.Context) {
	var photo model.CatalogPhoto
	if err := c.ShouldBindJSON(&photo); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的图片数据", err))
		return
	}

	created, err := h.likes.Like(c.Request.Context(), middleware.CurrentIdentity(c), &photo)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"liked": true, "created": created}, "")
}

func (h *CommunityHandler) ToggleLike(c *gin.Context) {
	var photo model.CatalogPhoto
	if err := c.ShouldBindJSON(&photo); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的图片数据", err))
		return
	}

	liked, err := h.likes.ToggleLike(c.Request.Context(), middleware.CurrentIdentity(c), &photo)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"liked": liked}, "")
}

func (h *CommunityHandler) UnlikePhoto(c *gin.Context) {
	removed, err := h.likes.Unlike(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("photoId"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"liked": false, "removed": removed}, "")
}

// DeleteLikeRecord 从“喜欢”列表中按记录ID删除
func (h *CommunityHandler) DeleteLikeRecord(c *gin.Context) {
	if err := h.likes.UnlikeByRecord(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id")); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, nil, "已取消点赞")
}

func (h *CommunityHandler) GetLikes(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	likes, err := h.likes.LikedByUser(c.Request.Context(), id.UID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"likes": likes}, "")
}

func (h *CommunityHandler) Follow(c *gin.Context) {
	var uri handleURI
	if err := c.ShouldBindUri(&uri); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户名", err))
		return
	}

	if err := h.follows.Follow(c.Request.Context(), middleware.CurrentIdentity(c), uri.Handle); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"following": true}, "关注成功")
}

func (h *CommunityHandler) Unfollow(c *gin.Context) {
	var uri handleURI
	if err := c.ShouldBindUri(&uri); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户名", err))
		return
	}

	removed, err := h.follows.Unfollow(c.Request.Context(), middleware.CurrentIdentity(c), uri.Handle)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"following": false, "removed": removed}, "已取消关注")
}

func (h *CommunityHandler) IsFollowing(c *gin.Context) {
	var uri handleURI
	if err := c.ShouldBindUri(&uri); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户名", err))
		return
	}

	id := middleware.CurrentIdentity(c)
	following, err := h.follows.IsFollowing(c.Request.Context(), id.UID, uri.Handle)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"following": following}, "")
}

// GetFollowing 用户名去重显示，数量按关注记录计算，与个人主页一致
func (h *CommunityHandler) GetFollowing(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	handles, err := h.follows.FollowingHandles(c.Request.Context(), id.UID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	count, err := h.follows.FollowingCount(c.Request.Context(), id.UID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{
		"following": handles,
		"count":     count,
	}, "")
}
