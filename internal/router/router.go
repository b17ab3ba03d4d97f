package router

import (
	"bakerapi/internal/handlers"
	"bakerapi/internal/middleware"
	"bakerapi/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter() *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	// 注册路由
	registerRoutes(router)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine) {

	auth := middleware.NewAuthMiddleware()

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		systemHandler := handlers.NewSystemHandler()
		api.GET("/health", systemHandler.Health)
		api.GET("/ping", systemHandler.Ping)

		// JWT认证路由
		authHandler := handlers.NewAuthHandler(services.NewUserService())
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login) // 用户登录

			// 🔒 获取当前用户信息
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
		}

		// 🔒 受访链接管理（咨询师端）
		linkHandler := handlers.NewRespondentLinkHandler()
		links := api.Group("/respondent-links", auth.RequireLogin())
		{
			links.POST("", linkHandler.Create)      // 签发链接
			links.GET("", linkHandler.List)         // 邀请列表
			links.POST("/email", linkHandler.Email) // 签发并邮件发送

			// 周期邀请计划
			links.POST("/schedule", linkHandler.CreateSchedule)
			links.GET("/schedule", linkHandler.ListSchedules)
			links.GET("/schedule/runs", linkHandler.ListClientRuns)
			links.GET("/schedule/:reference/runs", linkHandler.ListRuns)
			links.DELETE("/schedule/:reference", linkHandler.DeleteSchedule)
		}

		// 🔒 量表与作答记录（咨询师端）
		assessmentHandler := handlers.NewAssessmentHandler()
		assessments := api.Group("/assessments", auth.RequireLogin())
		{
			assessments.GET("", assessmentHandler.ListPublished)
			assessments.GET("/:slug", assessmentHandler.GetBySlug)
		}
		api.GET("/responses", auth.RequireLogin(), assessmentHandler.ListResponses)

		// 🔒 站内通知
		notificationHandler := handlers.NewNotificationHandler()
		notifications := api.Group("/notifications", auth.RequireLogin())
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		// 受访者端公开接口，凭链接令牌访问
		respondentHandler := handlers.NewRespondentHandler()
		respondent := api.Group("/respondent")
		{
			respondent.POST("/resolve", respondentHandler.Resolve)       // 解析链接
			respondent.POST("/client", respondentHandler.BindClient)     // 绑定客户档案
			respondent.POST("/assessment", respondentHandler.GetAssessment) // 获取量表题目
			respondent.POST("/response", respondentHandler.SubmitResponse)  // 提交作答
		}
	}
}
