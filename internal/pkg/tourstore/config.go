package tourstore

import (
	"errors"
	"fmt"

	"github.com/panorago/panorago/internal/pkg/env"
)

// Config holds object-storage configuration for the tour document store
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
}

// LoadConfig loads tour store configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}

	return config, nil
}

// GetObjectKey generates the object key for a tour document
func (c *Config) GetObjectKey(userID uint, tourID string) string {
	// Format: tours/<userID>/<tourID>.json
	return fmt.Sprintf("tours/%d/%s.json", userID, tourID)
}

// GetUserPrefix returns the key prefix holding all tour documents of a user
func (c *Config) GetUserPrefix(userID uint) string {
	return fmt.Sprintf("tours/%d/", userID)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}
