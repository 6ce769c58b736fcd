package user

import (
	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/middleware"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/service"
	"photoshared-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, err := h.profiles.GetProfile(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		util.Logger.Error("获取用户资料失败", zap.Error(err))
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"user": user,
	}, "")
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var updateData struct {
		Name     *string `json:"name"`
		Email    *string `json:"email" binding:"omitempty,email"`
		Password *string `json:"password"`
		Bio      *string `json:"bio"`
	}

	if err := c.ShouldBindJSON(&updateData); err != nil {
		util.Logger.Warn("更新用户资料失败，无效的请求数据", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	user, err := h.profiles.UpdateProfile(c.Request.Context(), middleware.CurrentIdentity(c), service.ProfileUpdate{
		Name:     updateData.Name,
		Email:    updateData.Email,
		Password: updateData.Password,
		Bio:      updateData.Bio,
	})
	if err != nil {
		util.Logger.Error("更新用户资料失败", zap.Error(err))
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"user": user,
	}, "资料更新成功")
}

func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	file, err := c.FormFile("picture")
	if err != nil {
		util.Logger.Warn("获取上传文件失败", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "无法获取上传文件", err))
		return
	}

	data, contentType, err := util.ReadUpload(file)
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的图片文件", err))
		return
	}

	url, err := h.profiles.SetProfilePicture(c.Request.Context(), middleware.CurrentIdentity(c), model.Upload{
		Filename:    file.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"photoURL": url,
	}, "头像上传成功")
}

func (h *ProfileHandler) RemovePicture(c *gin.Context) {
	if err := h.profiles.RemoveProfilePicture(c.Request.Context(), middleware.CurrentIdentity(c)); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, nil, "头像已删除")
}

func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	if err := h.profiles.DeleteAccount(c.Request.Context(), middleware.CurrentIdentity(c)); err != nil {
		util.Logger.Error("注销账户失败", zap.Error(err))
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, nil, "账户已成功注销")
}
