package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
	"github.com/egor/omnidesk/websocket"
)

// GetAvailableAgents возвращает операторов, готовых принять диалог,
// с текущей нагрузкой, наименее загруженные первыми
func (a *API) GetAvailableAgents(c *gin.Context) {
	available, err := a.assignment.AvailableAgents(c.Request.Context())
	if err != nil {
		log.Printf("Ошибка получения доступных операторов: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// не отдаем хеши паролей наружу
	for i := range available {
		available[i].Agent.PasswordHash = ""
	}

	c.JSON(http.StatusOK, gin.H{"agents": available})
}

// UpdateAgentStatus меняет статус текущего оператора
// (online/offline/away/busy) и оповещает остальных
func (a *API) UpdateAgentStatus(c *gin.Context) {
	agentID, err := uuid.Parse(c.GetString("agentID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Необходима авторизация"})
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	switch body.Status {
	case models.AgentOnline, models.AgentOffline, models.AgentAway, models.AgentBusy:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус: " + body.Status})
		return
	}

	if err := a.store.SetAgentStatus(c.Request.Context(), agentID, body.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Оператор не найден"})
			return
		}
		log.Printf("Ошибка обновления статуса оператора %s: %v", agentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Смена статуса влияет на автораспределение — оповещаем дашборды
	if data, err := websocket.NewAgentStatusEvent(agentID, body.Status); err == nil {
		a.hub.BroadcastToAgents(data, "")
	}

	log.Printf("Оператор %s сменил статус на %s", agentID, body.Status)
	c.JSON(http.StatusOK, gin.H{"status": body.Status})
}

// GetAgentStatistics возвращает сводку по оператору
func (a *API) GetAgentStatistics(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID оператора"})
		return
	}

	stats, err := a.assignment.AgentStatistics(c.Request.Context(), agentID)
	if err != nil {
		log.Printf("Ошибка получения статистики оператора %s: %v", agentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
