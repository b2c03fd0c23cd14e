package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egor/omnidesk/models"
)

// GetBusinessHours возвращает недельную таблицу рабочих часов
func (a *API) GetBusinessHours(c *gin.Context) {
	week, err := a.hours.Week(c.Request.Context())
	if err != nil {
		log.Printf("GetBusinessHours: ошибка чтения расписания: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"businessHours": week})
}

// UpdateBusinessDay сохраняет окно работы для одного дня недели.
// Доступно только администратору.
func (a *API) UpdateBusinessDay(c *gin.Context) {
	if c.GetString("role") != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Изменение расписания доступно только администратору"})
		return
	}

	var body struct {
		DayOfWeek *int   `json:"dayOfWeek" binding:"required"`
		OpenTime  string `json:"openTime" binding:"required"`
		CloseTime string `json:"closeTime" binding:"required"`
		Active    bool   `json:"active"`
		Timezone  string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	bh := &models.BusinessHours{
		DayOfWeek: *body.DayOfWeek,
		OpenTime:  body.OpenTime,
		CloseTime: body.CloseTime,
		Active:    body.Active,
		Timezone:  body.Timezone,
	}
	if err := a.hours.SetDay(c.Request.Context(), bh); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Расписание обновлено: день %d, %s-%s, active=%v",
		bh.DayOfWeek, bh.OpenTime, bh.CloseTime, bh.Active)
	c.JSON(http.StatusOK, bh)
}
