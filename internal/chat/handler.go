// Package chat implements the completion stream pipeline: validate the
// request, load context, stream from the model provider while the title
// generator races alongside, and persist the finished turn.
package chat

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/better-gpt/gateway/internal/errors"
	"github.com/better-gpt/gateway/internal/identity"
	"github.com/better-gpt/gateway/internal/logger"
	"github.com/better-gpt/gateway/internal/metrics"
	"github.com/better-gpt/gateway/internal/provider"
	"github.com/better-gpt/gateway/internal/ratelimit"
	"github.com/better-gpt/gateway/internal/store"
	"github.com/better-gpt/gateway/internal/stream"
	"github.com/better-gpt/gateway/internal/titlegen"
)

const placeholderTitle = "New chat"

// streamErrorMessage is the only error text a client ever sees inside
// a stream.
const streamErrorMessage = "Oops, an error occurred!"

const missingKeyMessage = "OpenRouter API key is not configured. Please add OPENROUTER_API_KEY to your environment variables."

// Handler serves the chat endpoints.
type Handler struct {
	logger       *logger.Logger
	store        store.Store
	identity     *identity.Resolver
	limiter      *ratelimit.Limiter
	provider     *provider.Client
	titles       *titlegen.Service
	catalog      *Catalog
	defaultModel string
	deadline     time.Duration
}

func NewHandler(
	log *logger.Logger,
	st store.Store,
	resolver *identity.Resolver,
	limiter *ratelimit.Limiter,
	client *provider.Client,
	titles *titlegen.Service,
	catalog *Catalog,
	defaultModel string,
	deadline time.Duration,
) *Handler {
	return &Handler{
		logger:       log.WithComponent("chat"),
		store:        st,
		identity:     resolver,
		limiter:      limiter,
		provider:     client,
		titles:       titles,
		catalog:      catalog,
		defaultModel: defaultModel,
		deadline:     deadline,
	}
}

// HandleChat is POST /api/chat.
func (h *Handler) HandleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.ChatRequests.WithLabelValues("invalid").Inc()
		apierrors.AbortWithBadRequest(c, "Invalid request body")
		return
	}
	if req.ID == "" || len(req.Messages) == 0 {
		metrics.ChatRequests.WithLabelValues("invalid").Inc()
		apierrors.AbortWithBadRequest(c, "Invalid request body")
		return
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}

	ctx := logger.WithChatID(c.Request.Context(), req.ID)

	ident, err := h.identity.Resolve(ctx, c.Request)
	if err != nil {
		h.logger.WithContext(ctx).Error("identity resolution failed", slog.String("error", err.Error()))
		metrics.ChatRequests.WithLabelValues("error").Inc()
		apierrors.AbortWithInternal(c)
		return
	}

	ctx = logger.WithUserID(ctx, ident.UserID)
	log := h.logger.WithContext(ctx)

	// Only unauthenticated traffic is quota-limited.
	if !ident.IsAuthenticated() {
		result, err := h.limiter.Check(ctx, ratelimit.ClientIP(c.Request))
		if err != nil {
			// Fail open: a broken limiter store must not take chat down.
			log.Warn("rate limit check failed, allowing request", slog.String("error", err.Error()))
		} else if !result.Allowed {
			metrics.RateLimitDenials.Inc()
			metrics.ChatRequests.WithLabelValues("rate_limited").Inc()
			apierrors.AbortWithRateLimit(c, apierrors.DailyLimitExceeded(result.ResetAt))
			return
		}
	}

	last := lastUserMessage(req.Messages)

	var history []store.Message
	shouldGenerateTitle := false

	existing, err := h.store.GetChat(ctx, req.ID)
	switch {
	case err == nil:
		if existing.UserID != ident.UserID {
			log.Warn("forbidden access attempt",
				slog.String("chat_owner", existing.UserID),
				slog.String("request_user", ident.UserID))
			metrics.ChatRequests.WithLabelValues("forbidden").Inc()
			apierrors.AbortWithForbidden(c)
			return
		}
		history, err = h.store.ListMessages(ctx, req.ID)
		if err != nil {
			log.Error("failed to load chat history", slog.String("error", err.Error()))
			metrics.ChatRequests.WithLabelValues("error").Inc()
			apierrors.AbortWithInternal(c)
			return
		}

	case stderrors.Is(err, store.ErrNotFound):
		err = h.store.CreateChat(ctx, store.Chat{
			ID:         req.ID,
			UserID:     ident.UserID,
			Title:      placeholderTitle,
			Visibility: store.VisibilityPrivate,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			log.Error("failed to create chat", slog.String("error", err.Error()))
			metrics.ChatRequests.WithLabelValues("error").Inc()
			apierrors.AbortWithInternal(c)
			return
		}
		shouldGenerateTitle = last != nil

	default:
		log.Error("failed to load chat", slog.String("error", err.Error()))
		metrics.ChatRequests.WithLabelValues("error").Inc()
		apierrors.AbortWithInternal(c)
		return
	}

	// Persist the user turn before the model call so a mid-stream
	// failure cannot lose the user's input.
	if last != nil {
		err = h.store.SaveMessages(ctx, []store.Message{{
			ID:        canonicalID(last.ID),
			ChatID:    req.ID,
			Role:      store.RoleUser,
			Parts:     toStoreParts(last.Parts),
			CreatedAt: time.Now(),
		}})
		if err != nil {
			log.Error("failed to persist user message", slog.String("error", err.Error()))
			metrics.ChatRequests.WithLabelValues("error").Inc()
			apierrors.AbortWithInternal(c)
			return
		}
	}

	// Fork without join: the title task writes to the store and the
	// outgoing stream on its own schedule; the response is complete
	// when the token stream ends, title or no title.
	titleCh := make(chan string, 1)
	if shouldGenerateTitle {
		h.titles.Enqueue(req.ID, textContent(last.Parts), titleCh)
	}

	caps := h.catalog.Resolve(model)

	providerReq := provider.Request{
		Model:    model,
		Messages: buildModelMessages(history, last),
	}
	if caps.Reasoning {
		providerReq.ReasoningBudget = caps.ThinkingBudget
	}

	streamCtx, cancel := context.WithTimeout(ctx, h.deadline)
	defer cancel()

	deltas, errc, err := h.provider.Stream(streamCtx, providerReq)
	if err != nil {
		if stderrors.Is(err, provider.ErrMissingAPIKey) {
			metrics.ChatRequests.WithLabelValues("config_error").Inc()
			apierrors.AbortWithConfiguration(c, missingKeyMessage)
			return
		}
		log.Error("failed to open completion stream", slog.String("error", err.Error()))
		metrics.ChatRequests.WithLabelValues("error").Inc()
		apierrors.AbortWithInternal(c)
		return
	}

	if ident.Kind == identity.NewGuest {
		identity.SetGuestCookie(c.Writer, ident.UserID)
	}

	c.Status(http.StatusOK)
	h.relayStream(c, log, req.ID, caps, deltas, errc, titleCh)
}

// relayStream multiplexes provider deltas and the title-update event
// onto the outgoing frame stream, then persists the assistant turn.
func (h *Handler) relayStream(
	c *gin.Context,
	log *logger.Logger,
	chatID string,
	caps Capabilities,
	deltas <-chan provider.Delta,
	errc <-chan error,
	titleCh chan string,
) {
	w := stream.NewWriter(c.Writer)
	started := time.Now()

	clientGone := false
	emit := func(event stream.Event) {
		if clientGone {
			return
		}
		if err := w.WriteEvent(event); err != nil {
			// The client went away; keep draining the provider but
			// stop writing.
			clientGone = true
			log.Debug("client disconnected mid-stream")
		}
	}

	emit(stream.Start())

	var chunker *wordChunker
	if caps.Smoothing == SmoothingWord {
		chunker = &wordChunker{}
	}

	var textBuf, reasoningBuf strings.Builder
	textID := uuid.New().String()
	reasoningID := uuid.New().String()
	textOpen := false
	reasoningOpen := false

	emitText := func(delta string) {
		if !textOpen {
			emit(stream.TextStart(textID))
			textOpen = true
		}
		emit(stream.TextDelta(textID, delta))
	}
	emitReasoning := func(delta string) {
		if !reasoningOpen {
			emit(stream.ReasoningStart(reasoningID))
			reasoningOpen = true
		}
		emit(stream.ReasoningDelta(reasoningID, delta))
	}

	streamFailed := false

loop:
	for {
		select {
		case title := <-titleCh:
			emit(stream.ChatTitle(title))
			titleCh = nil // receive at most one title event

		case err := <-errc:
			log.Error("completion stream failed", slog.String("error", err.Error()))
			streamFailed = true
			break loop

		case delta, ok := <-deltas:
			if !ok {
				break loop
			}
			if delta.Reasoning != "" {
				reasoningBuf.WriteString(delta.Reasoning)
				emitReasoning(delta.Reasoning)
			}
			if delta.Content != "" {
				textBuf.WriteString(delta.Content)
				if chunker != nil {
					for _, chunk := range chunker.Add(delta.Content) {
						emitText(chunk)
					}
				} else {
					emitText(delta.Content)
				}
			}
		}
	}

	if chunker != nil {
		if rest := chunker.Flush(); rest != "" {
			emitText(rest)
		}
	}
	if reasoningOpen {
		emit(stream.ReasoningEnd(reasoningID))
	}
	if textOpen {
		emit(stream.TextEnd(textID))
	}

	// Catch a title that landed while the last tokens were in flight.
	if titleCh != nil {
		select {
		case title := <-titleCh:
			emit(stream.ChatTitle(title))
		default:
		}
	}

	if streamFailed {
		// Headers are long gone; the only option is a terminal error
		// frame with an opaque message.
		emit(stream.Error(streamErrorMessage))
		metrics.ChatRequests.WithLabelValues("stream_error").Inc()
	} else {
		emit(stream.Finish())
		metrics.ChatRequests.WithLabelValues("ok").Inc()
	}
	if err := w.Done(); err != nil {
		clientGone = true
	}
	metrics.StreamDuration.Observe(time.Since(started).Seconds())

	if streamFailed {
		return
	}

	// The client connection may already be closed; persistence gets
	// its own deadline and failures are logged, never surfaced.
	if textBuf.Len() == 0 && reasoningBuf.Len() == 0 {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	parts := []store.Part{}
	if reasoningBuf.Len() > 0 {
		parts = append(parts, store.Part{Type: "reasoning", Text: reasoningBuf.String()})
	}
	if textBuf.Len() > 0 {
		parts = append(parts, store.Part{Type: "text", Text: textBuf.String()})
	}

	err := h.store.SaveMessages(persistCtx, []store.Message{{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      store.RoleAssistant,
		Parts:     parts,
		CreatedAt: time.Now(),
	}})
	if err != nil {
		log.Error("failed to persist assistant message", slog.String("error", err.Error()))
	}
}
