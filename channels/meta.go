package channels

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/egor/omnidesk/models"
)

const graphSendURL = "https://graph.facebook.com/v18.0/me/messages"

// metaSend отправляет сообщение через Messenger Platform API —
// общий путь для Facebook и Instagram.
func metaSend(ctx context.Context, rc *resty.Client, pageToken, recipientID, text, platform string) error {
	body := map[string]interface{}{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}

	resp, err := rc.R().
		SetContext(ctx).
		SetQueryParam("access_token", pageToken).
		SetBody(body).
		Post(graphSendURL)
	if err != nil {
		return fmt.Errorf("%s: send failed: %w", platform, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: send failed: status %d, body: %s", platform, resp.StatusCode(), resp.String())
	}
	return nil
}

// FacebookSender отправляет сообщения в Facebook Messenger.
type FacebookSender struct {
	rc        *resty.Client
	pageToken string
}

// NewFacebookSender создает отправителя Facebook
func NewFacebookSender(pageToken string) *FacebookSender {
	return &FacebookSender{rc: newRestyClient(), pageToken: pageToken}
}

func (s *FacebookSender) Platform() string { return models.ChannelFacebook }

func (s *FacebookSender) Send(ctx context.Context, recipientID, text string) error {
	return metaSend(ctx, s.rc, s.pageToken, recipientID, text, models.ChannelFacebook)
}

// InstagramSender отправляет сообщения в Instagram Direct.
// Использует тот же Messenger Platform API, что и Facebook.
type InstagramSender struct {
	rc        *resty.Client
	pageToken string
}

// NewInstagramSender создает отправителя Instagram
func NewInstagramSender(pageToken string) *InstagramSender {
	return &InstagramSender{rc: newRestyClient(), pageToken: pageToken}
}

func (s *InstagramSender) Platform() string { return models.ChannelInstagram }

func (s *InstagramSender) Send(ctx context.Context, recipientID, text string) error {
	return metaSend(ctx, s.rc, s.pageToken, recipientID, text, models.ChannelInstagram)
}
