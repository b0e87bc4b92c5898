// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mannavlakhab/studio/internal/config"
	"github.com/mannavlakhab/studio/internal/handler"
	"github.com/mannavlakhab/studio/internal/middleware"
	"github.com/mannavlakhab/studio/internal/repository"
	"github.com/mannavlakhab/studio/internal/service"
	"github.com/mannavlakhab/studio/pkg/database"
	"github.com/mannavlakhab/studio/pkg/llm"
	"github.com/mannavlakhab/studio/pkg/log"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化 Redis（对话状态的持久化存储）
	database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// 4. 初始化 Repository
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	llmClient := llm.NewClient(cfg.LLM)
	conversationService := service.NewConversationService(conversationRepo)
	attachmentService := service.NewAttachmentService(cfg.Chat)
	chatService := service.NewChatService(conversationService, llmClient)

	// 6. 启动时恢复对话状态，并立即校验活跃会话指针
	conversationService.Load(context.Background())

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Conversation 路由组
		conversations := apiV1.Group("/conversations")
		{
			conversationHandler := handler.NewConversationHandler(conversationService)
			conversations.GET("", conversationHandler.ListConversations)
			conversations.POST("", conversationHandler.CreateConversation)
			conversations.POST("/:id/select", conversationHandler.SelectConversation)
			conversations.DELETE("/:id", conversationHandler.DeleteConversation)
		}

		// Attachment 路由组
		attachments := apiV1.Group("/attachments")
		{
			attachmentHandler := handler.NewAttachmentHandler(attachmentService, conversationService)
			attachments.POST("", attachmentHandler.Upload)
			attachments.DELETE("", attachmentHandler.Clear)
		}

		// Chat 路由 (WebSocket)
		apiV1.GET("/chat/ws", handler.NewChatHandler(chatService).Handle)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP 服务监听失败", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("HTTP 服务器关闭失败", err)
	}

	log.Info("服务已优雅关闭")
}
