package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// AttachmentService 检验照片与附件存储服务
type AttachmentService struct {
	minioClient *minio.Client
	bucketName  string
}

func NewAttachmentService(minioClient *minio.Client, bucketName string) *AttachmentService {
	return &AttachmentService{
		minioClient: minioClient,
		bucketName:  bucketName,
	}
}

// EnsureBucket 启动时确保bucket存在
func (s *AttachmentService) EnsureBucket(ctx context.Context) error {
	if s.minioClient == nil {
		return nil
	}
	exists, err := s.minioClient.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.minioClient.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket: %w", err)
		}
	}
	return nil
}

// Upload 上传附件，返回对象路径
func (s *AttachmentService) Upload(ctx context.Context, reader io.Reader, fileName string, fileSize int64, contentType string) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("storage not configured")
	}

	objectName := fmt.Sprintf("attachments/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))
	_, err := s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	return objectName, nil
}

// Download 下载附件
func (s *AttachmentService) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if s.minioClient == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	object, err := s.minioClient.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return object, nil
}

// PresignedURL 生成限时下载链接
func (s *AttachmentService) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("storage not configured")
	}
	u, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

// Delete 删除附件
func (s *AttachmentService) Delete(ctx context.Context, objectName string) error {
	if s.minioClient == nil {
		return fmt.Errorf("storage not configured")
	}
	return s.minioClient.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
}
