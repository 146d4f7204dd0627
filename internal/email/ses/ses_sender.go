// Package ses delivers filing rejection notices through Amazon SES.
package ses

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"borderdesk/internal/config"
	"borderdesk/internal/email"
	"borderdesk/internal/port"
)

const charset = "UTF-8"

// SES tag values allow only alphanumerics, '_', '-', '.' and '@'.
var tagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.@-]`)

type rejectionMailer struct {
	client *sesv2.Client
	from   string
}

// NewSESSender creates an SES-backed EmailSender from the email settings.
func NewSESSender(cfg *config.EmailConfig) (port.EmailSender, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("ses.NewSESSender: from address is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}

	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &rejectionMailer{client: sesv2.NewFromConfig(awsCfg), from: from}, nil
}

func (m *rejectionMailer) SendFilingRejected(ctx context.Context, toEmail string, notice port.RejectionNotice) error {
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{toEmail}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8(email.RejectionSubject(notice)),
				Body: &types.Body{
					Html: utf8(email.RejectionHTML(notice)),
					Text: utf8(email.RejectionText(notice)),
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("kind"), Value: aws.String("filing-rejected")},
			{Name: aws.String("send-id"), Value: aws.String(tagValue(notice.SendID))},
		},
	})
	if err != nil {
		return fmt.Errorf("ses.SendFilingRejected: %w", err)
	}
	log.Printf("ses.SendFilingRejected: notice for manifest %s sent as %s", notice.ManifestID, aws.ToString(out.MessageId))
	return nil
}

func utf8(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String(charset)}
}

func tagValue(s string) string {
	if s == "" {
		return "none"
	}
	return tagUnsafe.ReplaceAllString(s, "_")
}
