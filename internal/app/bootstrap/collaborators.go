package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/wpchat-gateway/internal/archive"
	appconfig "github.com/wolfman30/wpchat-gateway/internal/config"
	"github.com/wolfman30/wpchat-gateway/internal/messaging/whatsapp"
	"github.com/wolfman30/wpchat-gateway/internal/observability/metrics"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

// BuildDeliveryClient returns the WhatsApp provider client with the configured
// retry policy.
func BuildDeliveryClient(cfg *appconfig.Config, m *metrics.GatewayMetrics, logger *logging.Logger) *whatsapp.Client {
	return whatsapp.New(whatsapp.Config{
		URL:         cfg.WhatsAppAPIURL,
		Timeout:     cfg.WhatsAppTimeout,
		MaxAttempts: cfg.WhatsAppMaxAttempts,
		Backoff:     cfg.WhatsAppBackoff,
		Logger:      logger,
		Metrics:     m,
	})
}

// BuildArchiveStore returns the transcript archive, or nil when no bucket is
// configured.
func BuildArchiveStore(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || cfg.ArchiveBucket == "" || awsCfg == nil {
		return nil
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		// LocalStack and MinIO need path-style addressing.
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	store := archive.NewStore(client, cfg.ArchiveBucket, logger)
	if logger != nil {
		logger.Info("transcript archive enabled", "bucket", cfg.ArchiveBucket)
	}
	return store
}
