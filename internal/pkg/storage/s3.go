package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/contentpilot/backend/config"
	"k8s.io/klog/v2"
)

// Service wraps the S3-compatible bucket holding generated post images.
type Service struct {
	client *s3.Client
	bucket string
}

func NewService(c *cfg.Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.Storage.AccessKey, c.Storage.SecretKey, "")),
		awsconfig.WithRegion(c.Storage.Region),
	)
	if err != nil {
		klog.Errorf("failed to load storage credentials: %v", err)
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Storage.Endpoint)
		}
	})

	return &Service{client: client, bucket: c.Storage.Bucket}, nil
}

// Upload stores an object under key.
func (s *Service) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		klog.Errorf("upload failed: key=%s, err=%v", key, err)
		return err
	}
	return nil
}

// Get fetches an object's bytes, used to feed reference images into edits.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		klog.Errorf("get object failed: key=%s, err=%v", key, err)
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete removes a stored asset. Returns whether the delete call succeeded;
// a missing object is not an error for the caller.
func (s *Service) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		klog.Errorf("delete failed: key=%s, err=%v", key, err)
		return false, err
	}
	klog.V(6).Infof("asset deleted: key=%s", key)
	return true, nil
}

// PresignDownload returns a time-limited download URL for an asset.
func (s *Service) PresignDownload(ctx context.Context, key, fileName string, expires time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if fileName != "" {
		input.ResponseContentDisposition = aws.String("attachment; filename=\"" + fileName + "\"")
	}

	req, err := presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(expires))
	if err != nil {
		klog.Errorf("presign failed: key=%s, err=%v", key, err)
		return "", err
	}
	return req.URL, nil
}
