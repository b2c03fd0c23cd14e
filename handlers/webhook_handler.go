package handlers

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/egor/omnidesk/models"
)

// ─────────────────────────── widget

// widgetPayload — сообщение из веб-виджета.
type widgetPayload struct {
	UserID       string  `json:"userId" binding:"required"`
	UserName     string  `json:"userName"`
	Content      string  `json:"content"`
	ProfileImage *string `json:"profileImage"`
	MessageType  string  `json:"messageType"`
}

// WidgetWebhook принимает сообщения веб-виджета
func (a *API) WidgetWebhook(c *gin.Context) {
	var in widgetPayload
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Printf("WidgetWebhook: ошибка парсинга JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := a.inbound.ProcessInboundMessage(c.Request.Context(), models.IncomingMessage{
		Platform:     models.ChannelWidget,
		ExternalID:   in.UserID,
		Name:         in.UserName,
		Content:      in.Content,
		ProfileImage: in.ProfileImage,
		MessageType:  in.MessageType,
	})
	if err != nil {
		log.Printf("WidgetWebhook: ошибка обработки: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		// пустое сообщение или ретрай — подтверждаем без обработки
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "message processed",
		"conversation_id": result.ConversationID,
		"ai_responded":    result.AIResponded,
	})
}

// ─────────────────────────── kakao

// KakaoVerify отвечает на проверку скилл-сервера KakaoTalk
func (a *API) KakaoVerify(c *gin.Context) {
	c.JSON(http.StatusOK, kakaoText("스킬 서버가 정상 작동 중입니다."))
}

// KakaoWebhook принимает вебхук KakaoTalk. Поддерживаются несколько
// форматов полезной нагрузки: скилл-сервер (userRequest) и простой формат.
func (a *API) KakaoWebhook(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("KakaoWebhook: ошибка парсинга JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Событие завершения диалога клиентом
	if eventType := kakaoEventType(payload); eventType == "leave" || eventType == "end_chat" {
		a.kakaoEndChat(c, payload)
		return
	}

	userID := firstString(
		digString(payload, "user_key"),
		digString(payload, "userRequest", "user", "id"),
		digString(payload, "sender", "id"),
	)
	content := firstString(
		digString(payload, "content"),
		digString(payload, "userRequest", "utterance"),
		digString(payload, "message", "text"),
	)
	userName := firstString(
		digString(payload, "user_name"),
		digString(payload, "userRequest", "user", "properties", "nickname"),
		"Kakao User",
	)
	var profileImage *string
	if img := digString(payload, "userRequest", "user", "properties", "profileImageUrl"); img != "" {
		profileImage = &img
	}

	if userID == "" || content == "" {
		log.Printf("KakaoWebhook: неполные данные - user_id: %v, content: %v", userID != "", content != "")
		c.JSON(http.StatusOK, kakaoText("접수되었습니다."))
		return
	}

	result, err := a.inbound.ProcessInboundMessage(c.Request.Context(), models.IncomingMessage{
		Platform:     models.ChannelKakao,
		ExternalID:   userID,
		Name:         userName,
		Content:      content,
		ProfileImage: profileImage,
	})
	if err != nil {
		log.Printf("KakaoWebhook: ошибка обработки: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Скилл-серверу нужен ответ в формате шаблона
	if result != nil && result.AIResponded {
		c.JSON(http.StatusOK, kakaoText("답변을 확인해주세요."))
		return
	}
	c.JSON(http.StatusOK, kakaoText("상담원이 곧 답변드리겠습니다."))
}

// kakaoEndChat закрывает открытый диалог клиента по событию выхода.
func (a *API) kakaoEndChat(c *gin.Context, payload map[string]interface{}) {
	userID := firstString(
		digString(payload, "user_key"),
		digString(payload, "userRequest", "user", "id"),
		digString(payload, "event", "user", "id"),
	)
	if userID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx := c.Request.Context()
	customer, err := a.store.GetCustomerByExternal(ctx, userID, models.ChannelKakao)
	if err != nil || customer == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	conv, err := a.store.FindOpenConversation(ctx, customer.ID, models.ChannelKakao)
	if err != nil || conv == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if err := a.reply.CloseConversation(ctx, conv.ID, "customer_left"); err != nil {
		log.Printf("KakaoWebhook: закрытие диалога %s: %v", conv.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Conversation ended"})
}

// kakaoText собирает simpleText-ответ для скилл-сервера.
func kakaoText(text string) gin.H {
	return gin.H{
		"version": "2.0",
		"template": gin.H{
			"outputs": []gin.H{
				{"simpleText": gin.H{"text": text}},
			},
		},
	}
}

// ─────────────────────────── meta (facebook / instagram)

// MetaVerify обрабатывает verification handshake вебхуков Meta
func (a *API) MetaVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == os.Getenv("META_VERIFY_TOKEN") {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// metaWebhookPayload — формат вебхука Messenger Platform.
type metaWebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				MID  string `json:"mid"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// FacebookWebhook принимает вебхук Facebook Messenger
func (a *API) FacebookWebhook(c *gin.Context) {
	a.metaWebhook(c, models.ChannelFacebook, "Facebook User")
}

// InstagramWebhook принимает вебхук Instagram Direct
func (a *API) InstagramWebhook(c *gin.Context) {
	a.metaWebhook(c, models.ChannelInstagram, "Instagram User")
}

// metaWebhook — общий разбор пачки событий Messenger Platform.
// Каждое событие обрабатывается независимо; mid сообщения используется
// для дедупликации ретраев платформы.
func (a *API) metaWebhook(c *gin.Context, platform, defaultName string) {
	var payload metaWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("%s webhook: ошибка парсинга JSON: %v", platform, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			if event.Sender.ID == "" || event.Message.Text == "" {
				continue
			}
			_, err := a.inbound.ProcessInboundMessage(c.Request.Context(), models.IncomingMessage{
				Platform:   platform,
				ExternalID: event.Sender.ID,
				Name:       defaultName,
				Content:    event.Message.Text,
				EventID:    event.Message.MID,
			})
			if err != nil {
				log.Printf("%s webhook: ошибка обработки события %s: %v", platform, event.Message.MID, err)
			}
		}
	}

	// Meta ждет 200 в любом случае, иначе начнет ретраить
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ─────────────────────────── helpers

// digString достает строку по пути ключей во вложенных map'ах.
func digString(m map[string]interface{}, path ...string) string {
	cur := m
	for i, key := range path {
		v, ok := cur[key]
		if !ok {
			return ""
		}
		if i == len(path)-1 {
			s, _ := v.(string)
			return s
		}
		cur, ok = v.(map[string]interface{})
		if !ok {
			return ""
		}
	}
	return ""
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func kakaoEventType(payload map[string]interface{}) string {
	return firstString(
		digString(payload, "event", "type"),
		digString(payload, "type"),
	)
}
