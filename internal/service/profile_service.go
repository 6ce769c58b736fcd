package service

import (
	"context"
	stderrors "errors"
	"strings"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/storage"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

// ProfileService 管理用户资料和头像
type ProfileService struct {
	users    interfaces.UserRepository
	blobs    storage.BlobStore
	identity interfaces.IdentityProvider
	metrics  *metrics.Metrics
}

func NewProfileService(users interfaces.UserRepository, blobs storage.BlobStore, identity interfaces.IdentityProvider, m *metrics.Metrics) *ProfileService {
	return &ProfileService{users: users, blobs: blobs, identity: identity, metrics: m}
}

// ProfileUpdate 编辑资料页提交的字段，nil 表示不修改
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Bio      *string
}

// GetProfile 读取资料文档，缺失的文档和字段按默认值处理
func (s *ProfileService) GetProfile(ctx context.Context, id *model.Identity) (*model.User, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	doc, err := s.users.FindByID(ctx, id.UID)
	if err != nil {
		util.Logger.Error("读取用户资料失败", util.UID(id.UID), zap.Error(err))
		return nil, errors.Wrap(errors.ErrQueryFailed, "读取用户资料失败", err)
	}

	profile := &model.User{ID: id.UID}
	if doc != nil {
		profile = doc
		profile.ID = id.UID
	}
	if profile.Name == "" {
		profile.Name = id.DisplayName
	}
	if profile.Name == "" {
		profile.Name = model.DefaultDisplayName
	}
	if profile.Email == "" {
		profile.Email = id.Email
	}

	if profile.PhotoURL == "" {
		url, err := s.blobs.URL(ctx, util.ProfilePicturePath(id.UID))
		switch {
		case err == nil:
			profile.PhotoURL = url
		case stderrors.Is(err, storage.ErrNotFound):
		default:
			util.Logger.Warn("读取头像地址失败", util.UID(id.UID), zap.Error(err))
		}
	}
	return profile, nil
}

// UpdateProfile 名称、邮箱、密码写入身份提供方，名称和简介合并进资料文档
func (s *ProfileService) UpdateProfile(ctx context.Context, id *model.Identity, update ProfileUpdate) (*model.User, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	var patch model.UserPatch

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name != id.DisplayName {
			if err := s.identity.UpdateDisplayName(ctx, id, name); err != nil {
				return nil, err
			}
			id.DisplayName = name
		}
		patch.Name = &name
	}
	if update.Email != nil && *update.Email != "" && *update.Email != id.Email {
		if err := s.identity.UpdateEmail(ctx, id, *update.Email); err != nil {
			return nil, err
		}
		id.Email = strings.ToLower(strings.TrimSpace(*update.Email))
		patch.Email = &id.Email
	}
	if update.Password != nil && *update.Password != "" {
		if err := s.identity.UpdatePassword(ctx, id, *update.Password); err != nil {
			return nil, err
		}
	}
	if update.Bio != nil {
		patch.Bio = update.Bio
	}

	if !patch.Empty() {
		if err := s.users.Merge(ctx, id.UID, patch); err != nil {
			util.Logger.Error("更新用户资料失败", util.UID(id.UID), zap.Error(err))
			return nil, errors.Wrap(errors.ErrDatabase, "更新用户资料失败", err)
		}
	}

	util.Logger.Info("用户资料已更新", util.UID(id.UID))
	return s.GetProfile(ctx, id)
}

// SetProfilePicture 覆盖固定路径的头像，合并资料文档，再尽力同步到身份提供方
func (s *ProfileService) SetProfilePicture(ctx context.Context, id *model.Identity, upload model.Upload) (url string, err error) {
	defer func() { s.metrics.ObserveOperation("profile.picture.set", err) }()

	if err := requireIdentity(id); err != nil {
		return "", err
	}
	if len(upload.Data) == 0 {
		return "", errors.New(errors.ErrValidation, "请选择要上传的图片")
	}

	path := util.ProfilePicturePath(id.UID)
	if err := s.blobs.Put(ctx, path, upload.Data, upload.ContentType); err != nil {
		util.Logger.Error("上传头像失败", util.UID(id.UID), zap.Error(err))
		return "", errors.Wrap(errors.ErrUploadFailed, "上传头像失败", err)
	}

	url, err = s.blobs.URL(ctx, path)
	if err != nil {
		util.Logger.Error("获取头像地址失败", util.UID(id.UID), zap.Error(err))
		return "", errors.Wrap(errors.ErrUploadFailed, "获取头像地址失败", err)
	}

	if err := s.users.Merge(ctx, id.UID, model.UserPatch{PhotoURL: &url}); err != nil {
		util.Logger.Error("保存头像地址失败", util.UID(id.UID), zap.Error(err))
		return "", errors.Wrap(errors.ErrRecordFailed, "保存头像地址失败", err)
	}

	s.mirrorPhotoURL(ctx, id, url)
	util.Logger.Info("头像已更新", util.UID(id.UID))
	return url, nil
}

// RemoveProfilePicture 删除头像。头像本就不存在时视为成功，资料文档和身份仍然会被清空。
func (s *ProfileService) RemoveProfilePicture(ctx context.Context, id *model.Identity) (err error) {
	defer func() { s.metrics.ObserveOperation("profile.picture.remove", err) }()

	if err := requireIdentity(id); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, util.ProfilePicturePath(id.UID)); err != nil {
		if !stderrors.Is(err, storage.ErrNotFound) {
			util.Logger.Error("删除头像失败", util.UID(id.UID), zap.Error(err))
			return errors.Wrap(errors.ErrReleaseFailed, "删除头像失败", err)
		}
		util.Logger.Info("头像不存在，跳过删除", util.UID(id.UID))
	}

	empty := ""
	if err := s.users.Merge(ctx, id.UID, model.UserPatch{PhotoURL: &empty}); err != nil {
		util.Logger.Error("清空头像地址失败", util.UID(id.UID), zap.Error(err))
		return errors.Wrap(errors.ErrDatabase, "清空头像地址失败", err)
	}

	s.mirrorPhotoURL(ctx, id, "")
	util.Logger.Info("头像已删除", util.UID(id.UID))
	return nil
}

func (s *ProfileService) mirrorPhotoURL(ctx context.Context, id *model.Identity, url string) {
	if err := s.identity.UpdatePhotoURL(ctx, id, url); err != nil {
		util.Logger.Warn("同步头像到身份提供方失败", util.UID(id.UID), zap.Error(err))
		return
	}
	id.PhotoURL = url
}

// DeleteAccount 删除账号
func (s *ProfileService) DeleteAccount(ctx context.Context, id *model.Identity) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	return s.identity.DeleteAccount(ctx, id)
}
