package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/mailer"
)

const (
	defaultQueueSize   = 256
	defaultWorkers     = 2
	defaultTaskTimeout = 20 * time.Second
)

// Task is one best-effort notification. With ToAdmins set, UserID and Email are ignored
// and every active admin receives a copy.
type Task struct {
	UserID   uuid.UUID
	Email    string
	ToAdmins bool
	Type     enums.NotificationType
	Title    string
	Message  string
	Link     *string
}

// Notifier is what domain services depend on to hand off side effects after commit.
type Notifier interface {
	Dispatch(ctx context.Context, task Task) bool
}

type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	TaskTimeout time.Duration
}

// Dispatcher persists in-app notifications and sends email from a bounded worker pool.
// Dispatch never blocks: when the queue is full the task is dropped with a warning.
type Dispatcher struct {
	repo    Repository
	mail    mailer.Sender
	logg    *logger.Logger
	timeout time.Duration
	workers int

	mu     sync.RWMutex
	closed bool
	tasks  chan queued
	wg     sync.WaitGroup
	start  sync.Once
}

type queued struct {
	ctx  context.Context
	task Task
}

func NewDispatcher(repo Repository, mail mailer.Sender, logg *logger.Logger, opts DispatcherOptions) (*Dispatcher, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if mail == nil {
		mail = mailer.Noop{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}
	return &Dispatcher{
		repo:    repo,
		mail:    mail,
		logg:    logg,
		timeout: opts.TaskTimeout,
		workers: opts.Workers,
		tasks:   make(chan queued, opts.QueueSize),
	}, nil
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.start.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run()
		}
	})
}

func (d *Dispatcher) Dispatch(ctx context.Context, task Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.warn(ctx, task, "notification.dropped_closed")
		return false
	}
	// request contexts end with the response; keep only their values
	select {
	case d.tasks <- queued{ctx: context.WithoutCancel(ctx), task: task}:
		return true
	default:
		d.warn(ctx, task, "notification.dropped_queue_full")
		return false
	}
}

// Close stops accepting tasks and waits for queued ones until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	// drain inline when Start was never called
	d.start.Do(func() {
		d.wg.Add(1)
		go d.run()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for q := range d.tasks {
		d.handle(q.ctx, q.task)
	}
}

func (d *Dispatcher) handle(parent context.Context, task Task) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil && d.logg != nil {
			d.logg.Error(d.logg.WithField(ctx, "panic", rec), "notification.panic", errors.New("notification task panicked"))
		}
	}()

	recipients := []Recipient{{UserID: task.UserID, Email: task.Email}}
	if task.ToAdmins {
		admins, err := d.repo.AdminRecipients(ctx)
		if err != nil {
			d.fail(ctx, task, "notification.recipients_failed", err)
			return
		}
		recipients = admins
	}

	for _, rcpt := range recipients {
		d.deliver(ctx, task, rcpt)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, task Task, rcpt Recipient) {
	if rcpt.UserID != uuid.Nil {
		n := &models.Notification{
			UserID:  rcpt.UserID,
			Type:    task.Type,
			Title:   task.Title,
			Message: task.Message,
			Link:    task.Link,
		}
		if err := d.repo.Create(ctx, n); err != nil {
			d.fail(ctx, task, "notification.persist_failed", err)
		}
	}
	if rcpt.Email != "" {
		msg := mailer.Message{To: rcpt.Email, Subject: task.Title, Body: task.Message}
		if err := d.mail.Send(ctx, msg); err != nil {
			d.fail(ctx, task, "notification.email_failed", err)
		}
	}
}

func (d *Dispatcher) fail(ctx context.Context, task Task, msg string, err error) {
	if d.logg == nil {
		return
	}
	d.logg.Error(d.logg.WithFields(ctx, map[string]any{
		"notification_type": string(task.Type),
		"title":             task.Title,
	}), msg, err)
}

func (d *Dispatcher) warn(ctx context.Context, task Task, msg string) {
	if d.logg == nil {
		return
	}
	d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
		"notification_type": string(task.Type),
		"title":             task.Title,
	}), msg)
}
