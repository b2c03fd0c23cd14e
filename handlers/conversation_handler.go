package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/egor/omnidesk/database"
	"github.com/egor/omnidesk/services"
)

// GetConversations возвращает список диалогов для оператора
func (a *API) GetConversations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(database.DefaultPageSize)))

	items, total, err := a.store.ListConversations(c.Request.Context(), page, pageSize)
	if err != nil {
		log.Printf("Ошибка получения диалогов: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка получения диалогов: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages(total, pageSize),
	})
}

// GetConversationByID возвращает диалог и страницу его сообщений.
// Открытие диалога оператором помечает входящие сообщения прочитанными.
func (a *API) GetConversationByID(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID диалога"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(database.DefaultPageSize)))

	ctx := c.Request.Context()
	conv, err := a.store.GetConversation(ctx, convID)
	if err != nil {
		log.Printf("Ошибка получения диалога %s: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Диалог не найден"})
		return
	}

	messages, total, err := a.store.MessagesPage(ctx, convID, page, pageSize)
	if err != nil {
		log.Printf("Ошибка получения сообщений диалога %s: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Отмечаем сообщения как прочитанные; ошибка не критична
	if err := a.store.MarkMessagesRead(ctx, convID); err != nil {
		log.Printf("Предупреждение: отметка прочитанных в диалоге %s: %v", convID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
		"page":         page,
		"pageSize":     pageSize,
		"totalItems":   total,
		"totalPages":   totalPages(total, pageSize),
	})
}

// SendMessage отправляет ответ оператора в диалог
func (a *API) SendMessage(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID диалога"})
		return
	}

	agentID, err := uuid.Parse(c.GetString("agentID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Необходима авторизация"})
		return
	}

	var messageData struct {
		Content string `json:"content" binding:"required"`
		Type    string `json:"type"`
	}
	if err := c.ShouldBindJSON(&messageData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	msg, err := a.reply.SendAgentReply(c.Request.Context(), convID, agentID, messageData.Content, messageData.Type)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Диалог не найден"})
		case errors.Is(err, services.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Пустое сообщение"})
		default:
			log.Printf("Ошибка отправки сообщения в диалог %s: %v", convID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка отправки сообщения: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, msg)
}

// CloseConversation закрывает диалог
func (a *API) CloseConversation(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID диалога"})
		return
	}

	if err := a.reply.CloseConversation(c.Request.Context(), convID, "agent_closed"); err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Диалог не найден"})
			return
		}
		log.Printf("Ошибка закрытия диалога %s: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// AssignConversation запускает автоназначение оператора на диалог
func (a *API) AssignConversation(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID диалога"})
		return
	}

	ok, err := a.assignment.AssignToConversation(c.Request.Context(), convID)
	if err != nil {
		log.Printf("Ошибка автоназначения для диалога %s: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assigned": ok})
}

// ReassignConversation переназначает диалог на указанного оператора
func (a *API) ReassignConversation(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID диалога"})
		return
	}

	var body struct {
		AgentID string `json:"agentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	newAgentID, err := uuid.Parse(body.AgentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID оператора"})
		return
	}

	ok, err := a.assignment.Reassign(c.Request.Context(), convID, newAgentID)
	if err != nil {
		log.Printf("Ошибка переназначения диалога %s: %v", convID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Диалог или оператор не найден"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reassigned": true})
}

// ShouldAutoRespond возвращает решение политики автоответа для текста.
// Используется фронтендом для подсказки «ответит бот / ждите оператора».
func (a *API) ShouldAutoRespond(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID диалога"})
		return
	}

	var body struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	conv, err := a.store.GetConversation(c.Request.Context(), convID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Диалог не найден"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shouldAutoRespond": a.policy.ShouldAutoRespond(c.Request.Context(), body.Text),
	})
}
