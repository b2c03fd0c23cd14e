package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/egor/omnidesk/channels"
	"github.com/egor/omnidesk/database"
	"github.com/egor/omnidesk/handlers"
	"github.com/egor/omnidesk/llm"
	"github.com/egor/omnidesk/middleware"
	"github.com/egor/omnidesk/services"
	"github.com/egor/omnidesk/websocket"
)

func main() {
	// .env опционален — в продакшене переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	// Инициализация базы данных
	if err := database.Init(); err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer database.Close()

	store := database.NewStore(database.DB)

	// Redis для дедупликации вебхуков (опционально)
	var dedup services.Deduper
	if rd, err := database.NewRedisDeduper(); err != nil {
		log.Printf("Redis недоступен, дедупликация вебхуков отключена: %v", err)
	} else if rd != nil {
		dedup = rd
		defer rd.Close()
	}

	// WebSocket хаб
	hub := websocket.NewHub()

	// LLM автоответчик
	responder := llm.NewAutoResponder(llm.NewClient())

	// Отправители для внешних платформ
	senders := channels.NewRegistry()

	// Сервисы
	hours := services.NewHoursService(store)
	if err := hours.EnsureDefaultWeek(context.Background()); err != nil {
		log.Printf("Не удалось заполнить расписание по умолчанию: %v", err)
	}
	assignment := services.NewAssignmentService(store, store, store)
	policy := services.NewAutoResponsePolicy(hours, assignment, services.DefaultTimezone)
	inbound := services.NewInboundService(store, store, store, assignment, policy, responder, hub, dedup)
	reply := services.NewReplyService(store, store, store, senders, hub)

	api := handlers.NewAPI(store, hub, inbound, assignment, reply, policy, hours)

	// Роутер Gin
	r := gin.Default()
	r.Use(middleware.Logger())

	// CORS для фронтенда
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	apiGroup := r.Group("/api")
	{
		// Авторизация операторов (публичный)
		apiGroup.POST("/auth/login", api.Login)

		// Вебхуки платформ (публичные, со своей верификацией)
		webhook := apiGroup.Group("/webhook")
		{
			webhook.POST("/widget", api.WidgetWebhook)
			webhook.GET("/kakao", api.KakaoVerify)
			webhook.POST("/kakao", api.KakaoWebhook)
			webhook.GET("/facebook", api.MetaVerify)
			webhook.POST("/facebook", api.FacebookWebhook)
			webhook.GET("/instagram", api.MetaVerify)
			webhook.POST("/instagram", api.InstagramWebhook)
		}

		// Защищенные маршруты
		authorized := apiGroup.Group("/")
		authorized.Use(middleware.AuthMiddleware())
		{
			conversations := authorized.Group("/conversations")
			{
				conversations.GET("", api.GetConversations)
				conversations.GET("/:id", api.GetConversationByID)
				conversations.POST("/:id/messages", api.SendMessage)
				conversations.POST("/:id/close", api.CloseConversation)
				conversations.POST("/:id/assign", api.AssignConversation)
				conversations.POST("/:id/reassign", api.ReassignConversation)
				conversations.POST("/:id/auto-response", api.ShouldAutoRespond)
			}

			agents := authorized.Group("/agents")
			{
				agents.GET("/available", api.GetAvailableAgents)
				agents.PUT("/status", api.UpdateAgentStatus)
				agents.GET("/:id/stats", api.GetAgentStatistics)
			}

			customers := authorized.Group("/customers")
			{
				customers.GET("/:id", api.GetCustomer)
				customers.DELETE("/:id", api.DeleteCustomer)
			}

			authorized.GET("/business-hours", api.GetBusinessHours)
			authorized.PUT("/business-hours", api.UpdateBusinessDay)
		}
	}

	// WebSocket эндпоинт
	r.GET("/ws", api.ServeWs)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Сервер запущен на порту :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
