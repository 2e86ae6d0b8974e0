// Package attach превращает вложение из чата в постоянную ссылку.
package attach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"go_form_bot/config"
)

var (
	ErrUnsupported  = errors.New("unsupported attachment type")
	ErrUploadFailed = errors.New("attachment upload failed")
)

var acceptedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type Attachment struct {
	FileID   string
	FileName string
	MimeType string
	// Photo — сжатое фото Telegram, всегда JPEG
	Photo bool
	Size  int64
}

func (a Attachment) ContentType() string {
	if a.Photo {
		return "image/jpeg"
	}
	return strings.ToLower(a.MimeType)
}

func (a Attachment) Accepted() bool {
	if a.FileID == "" {
		return false
	}
	_, ok := acceptedTypes[a.ContentType()]
	return ok
}

func (a Attachment) Ext() string {
	return acceptedTypes[a.ContentType()]
}

type Uploader interface {
	Upload(ctx context.Context, formName string, att Attachment) (string, error)
}

// Source отдаёт содержимое файла по его идентификатору в мессенджере
type Source interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, int64, error)
}

type TelegramSource struct {
	bot    *bot.Bot
	client *http.Client
}

func NewTelegramSource(b *bot.Bot) *TelegramSource {
	return &TelegramSource{bot: b, client: &http.Client{Timeout: 30 * time.Second}}
}

func (s *TelegramSource) Fetch(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	f, err := s.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, 0, fmt.Errorf("get file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.bot.FileDownloadLink(f), nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download file %s: %w", fileID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

type MinioUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
	src       Source
	now       func() time.Time
}

func NewMinioUploader(ctx context.Context, cfg config.MinIOConfig, src Source) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}
	return &MinioUploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		src:       src,
		now:       time.Now,
	}, nil
}

func (u *MinioUploader) Upload(ctx context.Context, formName string, att Attachment) (string, error) {
	if !att.Accepted() {
		return "", ErrUnsupported
	}

	body, size, err := u.src.Fetch(ctx, att.FileID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer body.Close()

	object := objectName(formName, att, u.now())
	_, err = u.client.PutObject(ctx, u.bucket, object, body, size, minio.PutObjectOptions{
		ContentType: att.ContentType(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return u.publicURL + "/" + u.bucket + "/" + object, nil
}

func objectName(formName string, att Attachment, now time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%s%s", formName, now.Year(), now.Month(), uuid.NewString(), att.Ext())
}

// FileIDUploader используется без MinIO: ссылкой служит идентификатор файла в Telegram
type FileIDUploader struct{}

func (FileIDUploader) Upload(_ context.Context, _ string, att Attachment) (string, error) {
	if !att.Accepted() {
		return "", ErrUnsupported
	}
	return "tg://file/" + att.FileID, nil
}
