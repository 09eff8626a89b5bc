package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// s3Provider stores everything in one bucket with the category as key
// prefix. A custom endpoint (minio and friends) comes in through the
// standard AWS_ENDPOINT_URL env handling of the SDK.
type s3Provider struct {
	log       *logger.Logger
	client    *s3.Client
	bucket    string
	cdnDomain string
	region    string
}

func NewS3Provider(logg *logger.Logger) (Provider, error) {
	bucket := strings.TrimSpace(os.Getenv("STORAGE_S3_BUCKET"))
	if bucket == "" {
		return nil, fmt.Errorf("missing STORAGE_S3_BUCKET")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: cfg.BaseEndpoint != nil,
	})

	p := &s3Provider{
		log:       logg.With("component", "S3Storage"),
		client:    client,
		bucket:    bucket,
		cdnDomain: strings.TrimSpace(os.Getenv("STORAGE_CDN_DOMAIN")),
		region:    cfg.Region,
	}
	p.log.Info("s3 object storage ready", "bucket", bucket, "region", cfg.Region)
	return p, nil
}

func (p *s3Provider) objectKey(category Category, key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", category, k), nil
}

func (p *s3Provider) Put(ctx context.Context, category Category, key string, contentType string, r io.Reader) error {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(ok),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := p.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3 put %s: %w", ok, err)
	}
	return nil
}

func (p *s3Provider) Get(ctx context.Context, category Category, key string) (io.ReadCloser, error) {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return nil, err
	}
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(ok),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", ok, err)
	}
	return out.Body, nil
}

func (p *s3Provider) Delete(ctx context.Context, category Category, key string) error {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(ok),
	}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", ok, err)
	}
	return nil
}

func (p *s3Provider) Attrs(ctx context.Context, category Category, key string) (*ObjectAttrs, error) {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(ok),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 head %s: %w", ok, err)
	}
	attrs := &ObjectAttrs{}
	if head.ContentLength != nil {
		attrs.Size = *head.ContentLength
	}
	if head.ContentType != nil {
		attrs.ContentType = *head.ContentType
	}
	if head.LastModified != nil {
		attrs.Updated = head.LastModified.UTC()
	}
	if head.ETag != nil {
		attrs.ETag = strings.Trim(*head.ETag, `"`)
	}
	return attrs, nil
}

func (p *s3Provider) PublicURL(category Category, key string) string {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return key
	}
	if p.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", p.cdnDomain, ok)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, ok)
}
