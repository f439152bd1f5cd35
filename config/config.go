package config

import (
	"fmt"
	"log"
	"os"
)

type Config struct {
	ServerPort string
	DBPath     string

	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3Bucket    string
	S3Endpoint  string // optional, for MinIO and other S3-compatible stores

	LogGroupName       string
	LogEnabled         bool
	RekognitionEnabled bool
}

var config *Config

// GetConfig builds the configuration from the environment on first use.
func GetConfig() *Config {
	if config == nil {
		config = &Config{
			ServerPort: getEnv("SERVER_PORT", "3001"),
			DBPath:     getEnv("DB_PATH", "/app/data/filemanager.db"),

			S3AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			S3SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			S3Region:    getEnv("AWS_DEFAULT_REGION", "us-east-1"),
			S3Bucket:    os.Getenv("S3_BUCKET"),
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),

			LogGroupName:       getEnv("LOG_GROUP_NAME", "/app/file-manager"),
			LogEnabled:         getEnv("LOG_ENABLED", "true") == "true",
			RekognitionEnabled: getEnv("REKOGNITION_ENABLED", "true") == "true",
		}

		log.Printf("Config loaded - ServerPort: %s, DBPath: %s, S3Bucket: %s",
			config.ServerPort, config.DBPath, config.S3Bucket)
	}
	return config
}

// Validate checks that the object store can actually be reached with this
// configuration.
func (c *Config) Validate() error {
	if c.S3AccessKey == "" {
		return fmt.Errorf("AWS_ACCESS_KEY_ID is not set")
	}
	if c.S3SecretKey == "" {
		return fmt.Errorf("AWS_SECRET_ACCESS_KEY is not set")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is not set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
