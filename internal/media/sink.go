package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"clix/internal/config"
	"clix/internal/model"
)

// R2Sink publishes finished uploads to Cloudflare R2 through the
// S3-compatible API. Configured deployments get durable public media URLs on
// posts; without it the local preview reference is used instead.
type R2Sink struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewR2Sink constructs the S3 client against the R2 endpoint.
func NewR2Sink(ctx context.Context, cfg *config.Config) (*R2Sink, error) {
	if !cfg.MediaSinkConfigured() {
		return nil, fmt.Errorf("missing R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Sink{
		s3Client:  client,
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

// Publish uploads the asset bytes and returns the public location.
func (s *R2Sink) Publish(ctx context.Context, data []byte, contentType string) (model.UploadResult, error) {
	key := fmt.Sprintf("%s/%s%s", model.PostMediaFolder, uuid.NewString(), extensionFor(contentType))

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("upload to r2: %w", err)
	}

	return model.UploadResult{
		URL: fmt.Sprintf("%s/%s", s.publicURL, key),
		Key: key,
	}, nil
}
