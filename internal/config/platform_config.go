package config

import "time"

type PlatformConfig interface {
	GetSignedURLEndpoint() string
	GetUploadPresignEndpoint() string
	GetUploadBackend() string
	GetGCSBucket() string
	GetGCSCredentialsFile() string
	GetLeaseRenewalBuffer() time.Duration
	GetDefaultLeaseLifetime() time.Duration
	GetWebhookTimeout() time.Duration
}

type Platform struct{}

var _ PlatformConfig = Platform{}

func (Platform) GetSignedURLEndpoint() string {
	return GetEnv("SIGNED_URL_ENDPOINT", "https://api.stream-io.cloud/presigned-play-url")
}

func (Platform) GetUploadPresignEndpoint() string {
	return GetEnv("UPLOAD_PRESIGN_ENDPOINT", "https://api.stream-io.cloud/presigned-upload-url")
}

// GetUploadBackend is either "platform" or "gcs".
func (Platform) GetUploadBackend() string {
	return GetEnv("UPLOAD_BACKEND", "platform")
}

func (Platform) GetGCSBucket() string {
	return GetEnv("GCS_BUCKET", "")
}

func (Platform) GetGCSCredentialsFile() string {
	return GetEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
}

func (Platform) GetLeaseRenewalBuffer() time.Duration {
	return time.Minute
}

func (Platform) GetDefaultLeaseLifetime() time.Duration {
	return 10 * time.Minute
}

func (Platform) GetWebhookTimeout() time.Duration {
	return GetEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second)
}
