// Package channels содержит клиентов доставки исходящих сообщений
// во внешние платформы (Kakao, Instagram, Facebook).
package channels

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Sender доставляет текстовое сообщение получателю во внешнем канале.
type Sender interface {
	Platform() string
	Send(ctx context.Context, recipientID, text string) error
}

// Registry хранит отправителей по типу канала.
// Для каналов без отправителя (widget, email) возвращается nil:
// виджет получает сообщения через WebSocket.
type Registry struct {
	senders map[string]Sender
}

// NewRegistry собирает отправителей из переменных окружения.
// Канал без настроенных учетных данных просто не регистрируется.
func NewRegistry() *Registry {
	r := &Registry{senders: make(map[string]Sender)}

	if token := os.Getenv("KAKAO_ACCESS_TOKEN"); token != "" {
		r.Add(NewKakaoSender(token))
	}
	if token := os.Getenv("FACEBOOK_PAGE_TOKEN"); token != "" {
		r.Add(NewFacebookSender(token))
		r.Add(NewInstagramSender(token))
	}
	if len(r.senders) == 0 {
		log.Println("[channels] отправители внешних каналов не настроены")
	}
	return r
}

// Add регистрирует отправителя для его платформы.
func (r *Registry) Add(s Sender) {
	r.senders[s.Platform()] = s
}

// For возвращает отправителя для платформы или nil.
func (r *Registry) For(platform string) Sender {
	return r.senders[platform]
}

// newRestyClient — общий HTTP-клиент для платформенных API.
func newRestyClient() *resty.Client {
	return resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(0)
}

// проверка соответствия интерфейсу
var (
	_ Sender = (*KakaoSender)(nil)
	_ Sender = (*FacebookSender)(nil)
	_ Sender = (*InstagramSender)(nil)
)
