package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSClient struct {
	client     *storage.Client
	bucketName string
}

func NewGCSClient(ctx context.Context, bucketName, credentialsFile string) (*GCSClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *GCSClient) Put(ctx context.Context, path string, data []byte, contentType string) error {
	writer := c.client.Bucket(c.bucketName).Object(path).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func (c *GCSClient) URL(ctx context.Context, path string) (string, error) {
	attrs, err := c.client.Bucket(c.bucketName).Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	// 头像路径固定，用 generation 让覆盖后的地址变化
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s?v=%d", c.bucketName, path, attrs.Generation), nil
}

func (c *GCSClient) Delete(ctx context.Context, path string) error {
	err := c.client.Bucket(c.bucketName).Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func (c *GCSClient) Close() error {
	return c.client.Close()
}
