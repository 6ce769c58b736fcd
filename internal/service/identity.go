package service

import (
	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/util"
)

// requireIdentity 所有互动操作在写入前先检查身份
func requireIdentity(id *model.Identity) error {
	if id == nil || id.UID == "" {
		return errors.New(errors.ErrUnauthenticated, "需要登录")
	}
	return nil
}

func validateHandle(handle string) error {
	if !util.IsValidHandle(handle) {
		return errors.New(errors.ErrValidation, "无效的用户名")
	}
	return nil
}
