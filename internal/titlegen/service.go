package titlegen

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/better-gpt/gateway/internal/logger"
	"github.com/better-gpt/gateway/internal/metrics"
	"github.com/better-gpt/gateway/internal/store"
)

// task is one queued generation. Notify receives the final title so the
// requesting stream can emit its title-update event; it must be
// buffered because the stream may already be gone.
type task struct {
	chatID  string
	message string
	notify  chan<- string
}

// Options tunes the worker pool.
type Options struct {
	WorkerPoolSize int
	BufferSize     int
	Timeout        time.Duration
}

// Service runs title generation on a small worker pool, detached from
// the requests that enqueue work. Every failure path logs and returns;
// a chat that never gets a title simply keeps its placeholder.
type Service struct {
	generator *Generator
	store     store.Store
	logger    *logger.Logger
	timeout   time.Duration

	tasks      chan task
	workerPool sync.WaitGroup
	shutdown   chan struct{}
	closed     atomic.Bool
}

func NewService(generator *Generator, st store.Store, log *logger.Logger, opts Options) *Service {
	if opts.WorkerPoolSize <= 0 {
		opts.WorkerPoolSize = 2
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	s := &Service{
		generator: generator,
		store:     st,
		logger:    log.WithComponent("titlegen"),
		timeout:   opts.Timeout,
		tasks:     make(chan task, opts.BufferSize),
		shutdown:  make(chan struct{}),
	}

	for i := 0; i < opts.WorkerPoolSize; i++ {
		s.workerPool.Add(1)
		go s.worker()
	}

	s.logger.Info("title generation service started",
		slog.Int("worker_pool_size", opts.WorkerPoolSize))
	return s
}

// Enqueue queues title generation for a new chat. Never blocks: a full
// queue drops the request, leaving the placeholder title.
func (s *Service) Enqueue(chatID, firstUserMessage string, notify chan<- string) {
	if s.closed.Load() {
		s.logger.Warn("service is shutting down, cannot queue title generation",
			slog.String("chat_id", chatID))
		return
	}

	select {
	case s.tasks <- task{chatID: chatID, message: firstUserMessage, notify: notify}:
	default:
		s.logger.Warn("title generation queue full, dropping request",
			slog.String("chat_id", chatID))
	}
}

func (s *Service) worker() {
	defer s.workerPool.Done()

	for {
		select {
		case t := <-s.tasks:
			s.handleTask(t)
		case <-s.shutdown:
			// Drain remaining tasks.
			for {
				select {
				case t := <-s.tasks:
					s.handleTask(t)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) handleTask(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	log := s.logger.WithContext(logger.WithChatID(ctx, t.chatID))

	title, err := s.generator.Generate(ctx, t.message)
	if err != nil {
		metrics.TitleGenerations.WithLabelValues("error").Inc()
		log.Error("failed to generate title", slog.String("error", err.Error()))
		return
	}
	if title == "" {
		metrics.TitleGenerations.WithLabelValues("empty").Inc()
		log.Warn("generated title is empty, keeping placeholder")
		return
	}

	// Persist first, then notify the stream; both are best-effort.
	if err := s.store.UpdateChatTitle(ctx, t.chatID, title); err != nil {
		log.Error("failed to persist chat title", slog.String("error", err.Error()))
	}

	if t.notify != nil {
		select {
		case t.notify <- title:
		default:
			// The request's stream already ended; the persisted title
			// is all that survives.
			log.Debug("title notification dropped, stream closed")
		}
	}

	metrics.TitleGenerations.WithLabelValues("ok").Inc()
	log.Info("title generated", slog.String("title", title))
}

// Shutdown drains the queue and stops the workers. Safe to call more
// than once.
func (s *Service) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("shutting down title generation service")
	close(s.shutdown)
	s.workerPool.Wait()
	s.logger.Info("title generation service shutdown complete")
}
