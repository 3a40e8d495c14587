package payment

import (
	"fmt"

	"campusdash/internal/config"
	"campusdash/internal/logger"

	"go.uber.org/zap"
)

// New selects the Confirmer for PAYMENT_MODE and APP_PLATFORM.
func New(cfg *config.Config) (Confirmer, error) {
	switch cfg.PaymentMode {
	case "sandbox", "":
		logger.L().Info("using sandbox payments")
		return NewSandboxConfirmer(0), nil
	case "stripe":
		platform := PlatformNative
		if cfg.AppPlatform == "web" {
			platform = PlatformWeb
		}
		logger.L().Info("using stripe payments", zap.String("platform", string(platform)))
		return NewStripeConfirmer(StripeOptions{
			PublishableKey: cfg.StripePublishableKey,
			BaseURL:        cfg.StripeAPIURL,
			Platform:       platform,
			Timeout:        cfg.HTTPTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.PaymentMode)
	}
}
