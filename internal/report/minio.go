package report

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mydata-ng/privacy-client/internal/config"
)

// MinioSink — адаптер MinIO/S3 для отчётов.
type MinioSink struct {
	bucket string
	client *mclient.Client
}

// NewMinioSink создаёт клиент MinIO.
// Убирает схему из endpoint, подбирает Secure по схеме
// и выполняет fail-fast-проверку наличия бакета.
func NewMinioSink(ctx context.Context, cfg config.S3Config) (*MinioSink, error) {
	const op = "report/NewMinioSink"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &MinioSink{bucket: cfg.Bucket, client: client}, nil
}

// Save загружает отчёт объектом name и возвращает s3://bucket/name.
func (s *MinioSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	const op = "report/MinioSink.Save"

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		mclient.PutObjectOptions{ContentType: ContentType})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return "s3://" + s.bucket + "/" + name, nil
}

// Проверка выполнения контракта.
var (
	_ Sink = (*MinioSink)(nil)
	_ Sink = FileSink{}
)
