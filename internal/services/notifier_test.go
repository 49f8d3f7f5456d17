package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSESSender struct {
	input *ses.SendEmailInput
	err   error
}

func (m *mockSESSender) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESLockoutNotifier_NotifyLockout(t *testing.T) {
	sender := &mockSESSender{}
	n := &SESLockoutNotifier{client: sender, fromAddress: "noreply@example.com", logger: slog.Default()}
	account := &models.Account{Email: "jane@example.com", FirstName: "jane"}
	until := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	require.NoError(t, n.NotifyLockout(context.Background(), account, until))

	require.NotNil(t, sender.input)
	assert.Equal(t, "noreply@example.com", aws.ToString(sender.input.Source))
	assert.Equal(t, []string{"jane@example.com"}, sender.input.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(sender.input.Message.Body.Text.Data), "2024-05-01 10:30:00 (UTC time)")
}

func TestSESLockoutNotifier_SendFailure(t *testing.T) {
	sender := &mockSESSender{err: errors.New("throttled")}
	n := &SESLockoutNotifier{client: sender, fromAddress: "noreply@example.com", logger: slog.Default()}

	err := n.NotifyLockout(context.Background(), &models.Account{Email: "jane@example.com"}, time.Now())

	assert.ErrorContains(t, err, "throttled")
}
