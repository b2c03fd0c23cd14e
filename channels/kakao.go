package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/egor/omnidesk/models"
)

const kakaoSendURL = "https://kapi.kakao.com/v1/api/talk/friends/message/default/send"

// KakaoSender отправляет сообщения через KakaoTalk API.
type KakaoSender struct {
	rc          *resty.Client
	accessToken string
}

// NewKakaoSender создает отправителя KakaoTalk
func NewKakaoSender(accessToken string) *KakaoSender {
	return &KakaoSender{
		rc:          newRestyClient(),
		accessToken: accessToken,
	}
}

func (s *KakaoSender) Platform() string { return models.ChannelKakao }

// Send отправляет текстовый шаблон получателю.
func (s *KakaoSender) Send(ctx context.Context, recipientID, text string) error {
	template := map[string]interface{}{
		"object_type": "text",
		"text":        text,
	}
	templateJSON, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("kakao: marshal template: %w", err)
	}

	resp, err := s.rc.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.accessToken).
		SetFormData(map[string]string{
			"receiver_uuids":  fmt.Sprintf(`["%s"]`, recipientID),
			"template_object": string(templateJSON),
		}).
		Post(kakaoSendURL)
	if err != nil {
		return fmt.Errorf("kakao: send failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("kakao: send failed: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
