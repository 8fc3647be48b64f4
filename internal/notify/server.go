// Package notify exposes a small HTTP surface the backend calls to push
// messages into chats: plain text and photos with captions.
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vodchyts/repairdesk/internal/chat"
)

// StartOpts holds configuration for the notify server.
type StartOpts struct {
	Gateway chat.Gateway
	Port    int
	Out     io.Writer
}

// Start launches the notify HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Gateway == nil {
		return fmt.Errorf("notify: chat gateway is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8085
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.Gateway)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Notify endpoint listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// registerRoutes wires the notification handlers.
func registerRoutes(router *gin.Engine, gw chat.Gateway) {
	router.POST("/notify/text", handleText(gw))
	router.POST("/notify/photo", handlePhoto(gw))
	router.GET("/check/:chatId", handleCheck(gw))
}

// textPayload is the JSON body of a text notification.
type textPayload struct {
	ChatID int64  `json:"chatId"`
	Text   string `json:"text"`
}

// handleText delivers a plain text message to a chat.
func handleText(gw chat.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload textPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		if payload.ChatID == 0 || payload.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId and text are required"})
			return
		}

		if _, err := gw.SendMessage(c.Request.Context(), payload.ChatID, payload.Text, chat.SendOpts{}); err != nil {
			log.Printf("notify: send text to chat %d: %v", payload.ChatID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handlePhoto delivers a photo, uploaded as multipart form data with a
// chatId field, a file part, and an optional caption.
func handlePhoto(gw chat.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID, err := strconv.ParseInt(c.PostForm("chatId"), 10, 64)
		if err != nil || chatID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}

		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is unreadable"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is unreadable"})
			return
		}

		if _, err := gw.SendPhoto(c.Request.Context(), chatID, data, c.PostForm("caption")); err != nil {
			log.Printf("notify: send photo to chat %d: %v", chatID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleCheck reports whether the bot can reach a chat, so callers can
// validate a chat ID before wiring notifications to it.
func handleCheck(gw chat.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
		if err != nil || chatID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat ID"})
			return
		}
		if err := gw.CheckChat(c.Request.Context(), chatID); err != nil {
			log.Printf("notify: check chat %d: %v", chatID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "chat not reachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
