package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/studiolens/core/internal/config"
)

const defaultPresignTTL = 15 * time.Minute

// Service issues presigned S3 upload URLs so clients push order photos and
// reference images straight to the object store without relaying bytes
// through this server.
type Service struct {
	presign      *s3.PresignClient
	bucket       string
	prefix       string
	baseURL      string
	usePathStyle bool
}

// New builds the S3-backed photo storage service from config.
func New(ctx context.Context, opts appcfg.S3Options) (*Service, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Service{
		presign:      s3.NewPresignClient(client),
		bucket:       bucket,
		prefix:       strings.Trim(opts.Prefix, "/"),
		baseURL:      strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		usePathStyle: strings.TrimSpace(opts.Endpoint) != "",
	}, nil
}

// PresignResult is returned to the uploading client.
type PresignResult struct {
	UploadURL string            `json:"upload_url"`
	FileKey   string            `json:"file_key"`
	FileURL   string            `json:"file_url"`
	Method    string            `json:"method"`
	ExpiresAt time.Time         `json:"expires_at"`
	Headers   map[string]string `json:"headers"`
}

// PresignUpload creates a presigned PUT for a new object key derived from the
// original filename's extension.
func (s *Service) PresignUpload(ctx context.Context, filename, contentType string, ttl time.Duration) (*PresignResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(po *s3.PresignOptions) {
		po.Expires = ttl
	})
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	fileURL := s.baseURL + "/" + key
	if s.usePathStyle && s.baseURL != "" {
		fileURL = s.baseURL + "/" + s.bucket + "/" + key
	}

	result := &PresignResult{
		UploadURL: req.URL,
		FileKey:   key,
		FileURL:   fileURL,
		Method:    req.Method,
		ExpiresAt: time.Now().Add(ttl),
		Headers:   map[string]string{"Content-Type": contentType},
	}
	for k, v := range req.SignedHeader {
		if len(v) > 0 {
			result.Headers[k] = v[0]
		}
	}
	return result, nil
}
