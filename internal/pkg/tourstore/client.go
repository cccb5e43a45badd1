package tourstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/panorago/panorago/app/models"
)

// ErrTourNotFound is returned when no document exists for a tour ID.
var ErrTourNotFound = errors.New("tourstore: tour not found")

const (
	maxAttempts    = 3
	retryBaseDelay = 200 * time.Millisecond
)

// Store is the persistence abstraction over the tour document bucket.
// Writes are idempotent upserts; the last writer wins (no concurrency token).
type Store interface {
	List(ctx context.Context, userID uint) ([]models.Tour, error)
	Get(ctx context.Context, userID uint, tourID string) (*models.Tour, error)
	Put(ctx context.Context, userID uint, tour *models.Tour) error
	Exists(ctx context.Context, userID uint, tourID string) (bool, error)
	Delete(ctx context.Context, userID uint, tourID string) error
}

// Client stores tour documents as JSON blobs in an S3 bucket
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates a new tour store client
func NewClient(cfg *Config) (*Client, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services (MinIO, B2) need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	if err := client.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Infof("[TourStore] Successfully initialized S3 client for bucket: %s", cfg.BucketName)
	return client, nil
}

// testConnection checks that the configured bucket is reachable
func (c *Client) testConnection() error {
	ctx := context.Background()

	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.BucketName),
	})

	if err != nil {
		// If bucket doesn't exist, try to create it (for development)
		if GetAppEnv() != "prod" {
			log.Warnf("[TourStore] Bucket %s not found, attempting to create it", c.config.BucketName)
			return c.createBucket(c.config.BucketName)
		}
		return fmt.Errorf("bucket %s not accessible: %w", c.config.BucketName, err)
	}

	return nil
}

// createBucket creates a new S3 bucket (dev/staging only)
func (c *Client) createBucket(bucketName string) error {
	ctx := context.Background()

	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}

	// For AWS regions other than us-east-1 a location constraint is required.
	// S3-compatible endpoints don't want one.
	if c.config.EndpointURL == "" && c.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.config.Region),
		}
	}

	_, err := c.s3Client.CreateBucket(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	log.Infof("[TourStore] Successfully created bucket: %s", bucketName)
	return nil
}

// Put stores a tour document, overwriting any previous version
func (c *Client) Put(ctx context.Context, userID uint, tour *models.Tour) error {
	body, err := json.Marshal(tour)
	if err != nil {
		return fmt.Errorf("failed to encode tour %s: %w", tour.ID, err)
	}

	objectKey := c.config.GetObjectKey(userID, tour.ID)
	return withRetry(ctx, "put "+objectKey, func() error {
		_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(c.config.BucketName),
			Key:           aws.String(objectKey),
			Body:          bytes.NewReader(body),
			ContentType:   aws.String("application/json"),
			ContentLength: aws.Int64(int64(len(body))),
		})
		return err
	})
}

// Get loads a single tour document
func (c *Client) Get(ctx context.Context, userID uint, tourID string) (*models.Tour, error) {
	objectKey := c.config.GetObjectKey(userID, tourID)

	var tour *models.Tour
	err := withRetry(ctx, "get "+objectKey, func() error {
		result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.config.BucketName),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			if isNotFound(err) {
				return ErrTourNotFound
			}
			return err
		}
		defer result.Body.Close()

		data, err := io.ReadAll(result.Body)
		if err != nil {
			return err
		}
		var t models.Tour
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to decode tour %s: %w", tourID, err)
		}
		tour = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tour, nil
}

// List loads all tour documents of a user
func (c *Client) List(ctx context.Context, userID uint) ([]models.Tour, error) {
	prefix := c.config.GetUserPrefix(userID)

	var keys []string
	err := withRetry(ctx, "list "+prefix, func() error {
		keys = keys[:0]
		paginator := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{
			Bucket: aws.String(c.config.BucketName),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, obj := range page.Contents {
				keys = append(keys, aws.ToString(obj.Key))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tours := make([]models.Tour, 0, len(keys))
	for _, key := range keys {
		var tour models.Tour
		err := withRetry(ctx, "get "+key, func() error {
			result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(c.config.BucketName),
				Key:    aws.String(key),
			})
			if err != nil {
				if isNotFound(err) {
					// Deleted between list and get; skip below.
					return ErrTourNotFound
				}
				return err
			}
			defer result.Body.Close()

			data, err := io.ReadAll(result.Body)
			if err != nil {
				return err
			}
			return json.Unmarshal(data, &tour)
		})
		if errors.Is(err, ErrTourNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tours = append(tours, tour)
	}

	return tours, nil
}

// Exists checks whether a tour document exists
func (c *Client) Exists(ctx context.Context, userID uint, tourID string) (bool, error) {
	objectKey := c.config.GetObjectKey(userID, tourID)

	exists := false
	err := withRetry(ctx, "head "+objectKey, func() error {
		_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.config.BucketName),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			if isNotFound(err) {
				exists = false
				return nil
			}
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Delete removes a tour document
func (c *Client) Delete(ctx context.Context, userID uint, tourID string) error {
	objectKey := c.config.GetObjectKey(userID, tourID)
	return withRetry(ctx, "delete "+objectKey, func() error {
		_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.config.BucketName),
			Key:    aws.String(objectKey),
		})
		return err
	})
}

// withRetry retries transient storage failures with exponential backoff.
// The base delay doubles per attempt; after the last attempt the error is
// surfaced and not retried further.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	delay := retryBaseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTourNotFound) {
			return err
		}
		if attempt < maxAttempts {
			log.Warnf("[TourStore] %s failed (attempt %d/%d): %v", op, attempt, maxAttempts, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return fmt.Errorf("tourstore: %s failed after %d attempts: %w", op, maxAttempts, err)
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &noSuchKey)
}
