package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egor/omnidesk/database"
	"github.com/egor/omnidesk/middleware"
)

// Login обрабатывает авторизацию сотрудников
func (a *API) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&credentials); err != nil {
		log.Printf("Ошибка парсинга данных для авторизации: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Попытка авторизации для пользователя: %s", credentials.Email)

	user, err := a.store.GetUserByEmail(c.Request.Context(), credentials.Email)
	if err != nil {
		log.Printf("Ошибка получения данных пользователя %s: %v", credentials.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка получения данных пользователя"})
		return
	}
	if user == nil || !user.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверные учетные данные"})
		return
	}

	// Проверяем пароль (хешированный в базе)
	if err := database.VerifyPassword(credentials.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверные учетные данные"})
		return
	}

	// Генерируем JWT токен
	token, err := middleware.GenerateToken(user.ID.String(), user.Role)
	if err != nil {
		log.Printf("Ошибка генерации токена для %s: %v", credentials.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка генерации токена"})
		return
	}

	if err := a.store.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
		// не критично, продолжаем
		log.Printf("Предупреждение: отметка входа для %s: %v", user.Email, err)
	}

	user.PasswordHash = ""

	log.Printf("Успешная авторизация: %s (ID: %s)", user.Email, user.ID)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
