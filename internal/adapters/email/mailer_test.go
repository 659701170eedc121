package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSES struct {
	got *ses.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewMailer(t *testing.T) {
	tests := []struct {
		name    string
		config  MailerConfig
		wantSES bool
		wantErr bool
	}{
		{name: "default is noop", config: MailerConfig{}},
		{name: "unknown falls back to noop", config: MailerConfig{Provider: "smtp"}},
		{name: "ses requires a sender", config: MailerConfig{Provider: ProviderSES}, wantErr: true},
		{
			name:    "ses",
			config:  MailerConfig{Provider: ProviderSES, FromAddress: "events@example.com", FromName: "Events", SES: SESConfig{Region: "eu-west-1"}},
			wantSES: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMailer(tt.config, discardLogger())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			sesM, isSES := m.(*sesMailer)
			assert.Equal(t, tt.wantSES, isSES)
			if isSES {
				assert.Equal(t, `"Events" <events@example.com>`, sesM.source)
			}
		})
	}
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := &sesMailer{client: client, source: "events@example.com", logger: discardLogger()}

	require.NoError(t, m.Send("ada@example.com", "You're in", "<p>hi</p>", ""))
	require.NotNil(t, client.got)
	assert.Equal(t, "events@example.com", aws.ToString(client.got.Source))
	assert.Equal(t, []string{"ada@example.com"}, client.got.Destination.ToAddresses)
	assert.Equal(t, "You're in", aws.ToString(client.got.Message.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.got.Message.Body.Html.Data))
	assert.Nil(t, client.got.Message.Body.Text)

	client.err = errors.New("throttled")
	err := m.Send("ada@example.com", "s", "", "plain")
	require.ErrorIs(t, err, client.err)
	assert.Nil(t, client.got.Message.Body.Html)
	assert.Equal(t, "plain", aws.ToString(client.got.Message.Body.Text.Data))
}
