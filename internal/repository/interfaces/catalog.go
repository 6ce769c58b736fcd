package interfaces

import (
	"context"

	"photoshared-backend/internal/model"
)

// PhotoCatalog 第三方图片目录
type PhotoCatalog interface {
	UserPhotos(ctx context.Context, handle string, page, perPage int) ([]model.CatalogPhoto, error)
	Search(ctx context.Context, query string, page, perPage int) (*model.SearchResult, error)
}
