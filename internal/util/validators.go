package util

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// IsValidHandle 判断图片目录用户名是否合法
func IsValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// ValidateHandle 验证图片目录用户名
func ValidateHandle(fl validator.FieldLevel) bool {
	handle, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return IsValidHandle(handle)
}
