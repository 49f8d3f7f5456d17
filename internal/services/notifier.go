package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
	pkglogger "github.com/BradenHooton/usermanager/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// LockoutNotifier tells an account owner that repeated failures locked the account
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, account *models.Account, until time.Time) error
}

// NoopNotifier is used when no mail transport is configured
type NoopNotifier struct{}

func (NoopNotifier) NotifyLockout(context.Context, *models.Account, time.Time) error { return nil }

// sesSender is the subset of *ses.Client used here
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier sends lockout notices using AWS SES
type SESLockoutNotifier struct {
	client      sesSender
	fromAddress string
	logger      *slog.Logger
}

func NewSESLockoutNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESLockoutNotifier{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, account *models.Account, until time.Time) error {
	unlockAt := until.UTC().Format("2006-01-02 15:04:05")

	textBody := fmt.Sprintf(`Hello %s,

Your account was locked after too many failed sign in attempts.
You will be able to sign in again after %s (UTC time).

If this was not you, contact an administrator.

This is an automated message. Please do not reply to this email.
`, account.FirstName, unlockAt)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{account.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been locked"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	n.logger.Info("lockout email sent",
		slog.String("email", pkglogger.SanitizedEmail(account.Email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
