package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/yorukot/apikeys/internal/models"
)

const s3KeyPrefix = "credentials/"

// S3Store implements the Store interface using one JSON object per key
type S3Store struct {
	client *s3.Client
	bucket string
}

// S3Config holds configuration for S3 storage
type S3Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewS3Store creates a new S3 credential store
func NewS3Store(config S3Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	cfg := aws.Config{
		Region: config.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		),
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
		// S3-compatible servers often reject the newer default checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Store{
		client: client,
		bucket: config.Bucket,
	}, nil
}

func objectKey(key int64) string {
	return s3KeyPrefix + strconv.FormatInt(key, 10) + ".json"
}

// Exists checks if the credential object is present
func (s *S3Store) Exists(ctx context.Context, key int64) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return true, nil
}

// Lookup downloads and decodes the credential object
func (s *S3Store) Lookup(ctx context.Context, key int64) (models.Credential, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return models.Credential{}, ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("failed to download credential: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to read credential: %w", err)
	}
	return decodeCredential(data)
}

// Create uploads the credential with If-None-Match so an existing object is never overwritten
func (s *S3Store) Create(ctx context.Context, key int64, cred models.Credential) error {
	body, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isS3PreconditionFailed(err) {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to upload credential: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err
}

// Close is a no-op; the S3 client holds no long-lived connections of its own
func (s *S3Store) Close() error {
	return nil
}

type httpStatusError interface {
	HTTPStatusCode() int
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var se httpStatusError
	return errors.As(err, &se) && se.HTTPStatusCode() == http.StatusNotFound
}

func isS3PreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	var se httpStatusError
	return errors.As(err, &se) && se.HTTPStatusCode() == http.StatusPreconditionFailed
}

// decodeCredential parses a stored JSON credential, rejecting records missing a field
func decodeCredential(data []byte) (models.Credential, error) {
	var raw struct {
		Org       *string `json:"org"`
		AuthLevel *uint64 `json:"auth_level"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Credential{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if raw.Org == nil || raw.AuthLevel == nil {
		return models.Credential{}, ErrCorrupt
	}
	return models.Credential{Org: *raw.Org, AuthLevel: *raw.AuthLevel}, nil
}
