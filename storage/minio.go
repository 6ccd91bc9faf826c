package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"MuPocket/config"
	"MuPocket/logger"
)

// MinioStorage 缓存文件的对象存储镜像
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage 初始化 MinIO 客户端并确保存储桶存在
func NewMinioStorage(cfg *config.Config) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("存储桶创建成功", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("MinIO 连接成功",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return &MinioStorage{client: client, bucket: cfg.MinioBucket}, nil
}

// UploadFile 上传本地文件到存储桶
func (s *MinioStorage) UploadFile(ctx context.Context, localPath, objectName string) error {
	info, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("上传文件失败: %w", err)
	}
	logger.Debug("文件上传成功",
		logger.String("object", objectName),
		logger.Int64("size", info.Size))
	return nil
}

// RemoveFile 删除存储桶中的对象
func (s *MinioStorage) RemoveFile(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
