// Package mail sends plain-text notification emails.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoMessageID is returned when the provider accepts a message without
// reporting its id.
var ErrNoMessageID = errors.New("mail provider returned no message id")

// Mailer sends one message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// SESAPI is the subset of the SES v2 client used by SESMailer.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends mail through Amazon SES.
type SESMailer struct {
	client SESAPI
	sender string
}

// NewSESMailer loads the default AWS config for region and sends as sender.
func NewSESMailer(ctx context.Context, region, sender string) (*SESMailer, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESMailerWithClient(sesv2.NewFromConfig(awsConfig), sender), nil
}

// NewSESMailerWithClient wraps an existing client.
func NewSESMailerWithClient(client SESAPI, sender string) *SESMailer {
	return &SESMailer{client: client, sender: sender}
}

func (m *SESMailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	if out.MessageId == nil || *out.MessageId == "" {
		return "", ErrNoMessageID
	}
	return *out.MessageId, nil
}

// LogMailer writes messages to the log instead of sending them. Used in
// development and by the in-memory deployment.
type LogMailer struct {
	log logrus.FieldLogger
}

// NewLogMailer creates a mailer that logs every message
func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) (string, error) {
	id := uuid.NewString()
	m.log.WithFields(logrus.Fields{
		"message_id": id,
		"to":         to,
		"subject":    subject,
	}).Info(body)
	return id, nil
}
