package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/urbanhaven-leadbot/internal/config"
	"github.com/wolfman30/urbanhaven-leadbot/internal/leads"
	"github.com/wolfman30/urbanhaven-leadbot/internal/notify"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// BuildEmailSender picks the provider named by EMAIL_PROVIDER, falling back
// to the logging stub when the provider is not usable.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}

	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender != nil {
			return sender, "sendgrid"
		}
		logger.Warn("EMAIL_PROVIDER=sendgrid but SENDGRID_API_KEY is empty; using stub sender")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger), "ses"
		}
		logger.Warn("EMAIL_PROVIDER=ses but AWS is not configured; using stub sender")
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildLeadNotifier returns nil when neither ADMIN_EMAIL nor EMAIL_FROM is
// set, which disables lead notifications.
func BuildLeadNotifier(cfg *appconfig.Config, sender notify.EmailSender, logger *logging.Logger) leads.Notifier {
	if cfg == nil || sender == nil {
		return nil
	}
	recipient := strings.TrimSpace(cfg.NotificationRecipient())
	if recipient == "" {
		return nil
	}
	return notify.NewLeadNotifier(sender, recipient, logger)
}
