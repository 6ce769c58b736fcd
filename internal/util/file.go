package util

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUploadSize 上传文件大小上限
const MaxUploadSize = 10 << 20

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename 去掉目录部分，并把不安全字符替换为下划线
func SanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// PostObjectPath 生成帖子图片的存储路径: posts/{uid}/{毫秒时间戳}_{8位随机串}_{文件名}
// 同一毫秒内上传同名文件也不会互相覆盖
func PostObjectPath(uid string, now time.Time, filename string) string {
	return fmt.Sprintf("posts/%s/%d_%s_%s", uid, now.UnixMilli(), uuid.NewString()[:8], SanitizeFilename(filename))
}

// ProfilePicturePath 头像固定路径，重复上传会覆盖
func ProfilePicturePath(uid string) string {
	return "profilePictures/" + uid
}

// ReadUpload 读取 multipart 上传文件，返回文件内容和内容类型
func ReadUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	if fh.Size > MaxUploadSize {
		return nil, "", fmt.Errorf("文件过大: %d 字节", fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxUploadSize {
		return nil, "", fmt.Errorf("文件过大")
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("文件为空")
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
