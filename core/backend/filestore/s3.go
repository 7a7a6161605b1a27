package filestore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Configuration contains the configuration for an S3 bucket
type S3Configuration struct {
	AccessID  string
	AccessKey string
	AWSRegion string
	AWSBucket string
	KeyPrefix string
}

// S3 stores files in an AWS S3 bucket. Retrieval URLs are pre-signed
// and expire after 24 hours.
type S3 struct {
	config aws.Config
	bucket string
	prefix string
}

// NewS3 returns a new S3 driver
func NewS3(storeConfig S3Configuration) (*S3, error) {
	if storeConfig.AWSBucket == "" {
		return nil, fmt.Errorf("AWSBucket is empty")
	}
	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion(storeConfig.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(storeConfig.AccessID, storeConfig.AccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return &S3{
		config: cfg,
		bucket: storeConfig.AWSBucket,
		prefix: storeConfig.KeyPrefix,
	}, nil
}

// Store uploads data to the bucket and returns a pre-signed GET URL.
func (s *S3) Store(key string, data []byte, contentType string) (string, error) {
	client := s3.NewFromConfig(s.config)
	_, err := client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	presignClient := s3.NewPresignClient(s3.NewFromConfig(s.config))
	resp, err := presignClient.PresignGetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	}, s3.WithPresignExpires(24*time.Hour))
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Delete removes the object with the given key from the bucket.
func (s *S3) Delete(key string) error {
	client := s3.NewFromConfig(s.config)
	_, err := client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	return err
}
