package chat

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/better-gpt/gateway/internal/errors"
	"github.com/better-gpt/gateway/internal/logger"
	"github.com/better-gpt/gateway/internal/store"
)

// HandleListChats is GET /api/chats. An anonymous caller owns nothing,
// so the response is an empty list rather than an auth challenge.
func (h *Handler) HandleListChats(c *gin.Context) {
	ctx := c.Request.Context()

	ident, found := h.identity.Peek(ctx, c.Request)
	if !found {
		c.JSON(http.StatusOK, gin.H{"chats": []store.Chat{}})
		return
	}

	ctx = logger.WithUserID(ctx, ident.UserID)

	chats, err := h.store.ListChats(ctx, ident.UserID, c.Query("search"))
	if err != nil {
		h.logger.WithContext(ctx).Error("failed to list chats", slog.String("error", err.Error()))
		apierrors.AbortWithInternal(c)
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// HandleDeleteChat is DELETE /api/chats/:id. Only the owner may delete;
// a chat owned by someone else 404s the same as a missing one so ids
// cannot be probed.
func (h *Handler) HandleDeleteChat(c *gin.Context) {
	chatID := c.Param("id")
	ctx := logger.WithChatID(c.Request.Context(), chatID)

	ident, found := h.identity.Peek(ctx, c.Request)
	if !found {
		apierrors.AbortWithNotFound(c, "Chat not found")
		return
	}

	ctx = logger.WithUserID(ctx, ident.UserID)
	log := h.logger.WithContext(ctx)

	chat, err := h.store.GetChat(ctx, chatID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			apierrors.AbortWithNotFound(c, "Chat not found")
			return
		}
		log.Error("failed to load chat", slog.String("error", err.Error()))
		apierrors.AbortWithInternal(c)
		return
	}
	if chat.UserID != ident.UserID {
		log.Warn("delete attempt on foreign chat", slog.String("chat_owner", chat.UserID))
		apierrors.AbortWithNotFound(c, "Chat not found")
		return
	}

	if err := h.store.DeleteChat(ctx, chatID); err != nil {
		log.Error("failed to delete chat", slog.String("error", err.Error()))
		apierrors.AbortWithInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
