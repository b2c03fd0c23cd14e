package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// GetCustomer возвращает карточку клиента
func (a *API) GetCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID клиента"})
		return
	}

	customer, err := a.store.GetCustomer(c.Request.Context(), id)
	if err != nil {
		log.Printf("GetCustomer: ошибка чтения клиента %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if customer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Клиент не найден"})
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer удаляет клиента со всеми его данными.
// Доступно только администратору (запрос на удаление персональных данных).
func (a *API) DeleteCustomer(c *gin.Context) {
	if c.GetString("role") != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Удаление клиентов доступно только администратору"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID клиента"})
		return
	}

	if err := a.store.DeleteCustomer(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Клиент не найден"})
			return
		}
		log.Printf("DeleteCustomer: ошибка удаления клиента %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Клиент %s удален", id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
