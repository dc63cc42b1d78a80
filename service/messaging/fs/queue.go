package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/nucleus/internal/clock"
	"github.com/viant/nucleus/internal/idgen"
	"github.com/viant/nucleus/service/messaging"
)

// MessageState represents the state of a message in the spool
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateFailed     MessageState = "failed"
)

// Message implements messaging.Message for the filesystem spool
type Message[T any] struct {
	MessageID string       `json:"id"`
	Seq       int64        `json:"seq"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// ID returns the message identifier
func (m *Message[T]) ID() string {
	return m.MessageID
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack moves the message to the completed directory
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.MessageID)
	}
	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = clock.Now()
	return m.queue.settle(context.Background(), m, m.queue.completedDir)
}

// Nack moves the message to the failed directory with the error recorded
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.MessageID)
	}
	m.processed = true
	m.State = MessageStateFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.UpdatedAt = clock.Now()
	return m.queue.settle(context.Background(), m, m.queue.failedDir)
}

// Config holds configuration for the filesystem spool
type Config struct {
	URL          string        `json:"url,omitempty" yaml:"url,omitempty"`
	PollInterval time.Duration `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
	KeepSettled  bool          `json:"keepSettled,omitempty" yaml:"keepSettled,omitempty"` // keep completed messages as a journal
}

// DefaultConfig returns a default spool configuration
func DefaultConfig() Config {
	return Config{
		URL:          "mem://localhost/nucleus/spool",
		PollInterval: 10 * time.Millisecond,
		KeepSettled:  true,
	}
}

// Queue is a durable FIFO spool on any afs storage. Messages are consumed in
// publish order: file names carry a zero padded sequence number.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	completedDir  string
	failedDir     string
	seq           int64
	mu            sync.Mutex
}

// NewQueue creates a spool rooted at config.URL
func NewQueue[T any](ctx context.Context, fs afs.Service, config Config) (*Queue[T], error) {
	if config.URL == "" {
		return nil, fmt.Errorf("spool URL cannot be empty")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    url.Join(config.URL, "pending"),
		processingDir: url.Join(config.URL, "processing"),
		completedDir:  url.Join(config.URL, "completed"),
		failedDir:     url.Join(config.URL, "failed"),
		seq:           clock.Now().UnixNano(),
	}
	for _, dir := range []string{q.pendingDir, q.processingDir, q.completedDir, q.failedDir} {
		if exists, _ := fs.Exists(ctx, dir); exists {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create spool directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a new message to the pending directory
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := clock.Now()
	message := &Message[T]{
		MessageID: idgen.New(),
		Seq:       atomic.AddInt64(&q.seq, 1),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return q.write(ctx, url.Join(q.pendingDir, message.filename()), message)
}

// Consume waits for the oldest pending message and moves it to processing
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		message, err := q.next(ctx)
		if err != nil {
			return nil, err
		}
		if message != nil {
			return message, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.config.PollInterval):
		}
	}
}

// Pending returns the number of messages waiting in the spool
func (q *Queue[T]) Pending(ctx context.Context) (int, error) {
	objects, err := q.list(ctx, q.pendingDir)
	return len(objects), err
}

// Failed returns the messages settled with Nack
func (q *Queue[T]) Failed(ctx context.Context) ([]*Message[T], error) {
	return q.load(ctx, q.failedDir)
}

// Completed returns the messages settled with Ack, oldest first
func (q *Queue[T]) Completed(ctx context.Context) ([]*Message[T], error) {
	return q.load(ctx, q.completedDir)
}

func (q *Queue[T]) next(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	objects, err := q.list(ctx, q.pendingDir)
	if err != nil || len(objects) == 0 {
		return nil, err
	}
	object := objects[0]
	message, err := q.read(ctx, object.URL())
	if err != nil {
		_ = q.fs.Move(ctx, object.URL(), url.Join(q.failedDir, "invalid-"+object.Name()))
		return nil, err
	}
	message.State = MessageStateProcessing
	message.UpdatedAt = clock.Now()
	message.queue = q
	if err = q.write(ctx, url.Join(q.processingDir, object.Name()), message); err != nil {
		return nil, err
	}
	if err = q.fs.Delete(ctx, object.URL()); err != nil {
		return nil, fmt.Errorf("failed to delete pending message %v: %w", object.URL(), err)
	}
	return message, nil
}

func (q *Queue[T]) settle(ctx context.Context, m *Message[T], dir string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if dir != q.completedDir || q.config.KeepSettled {
		if err := q.write(ctx, url.Join(dir, m.filename()), m); err != nil {
			return err
		}
	}
	processing := url.Join(q.processingDir, m.filename())
	if exists, _ := q.fs.Exists(ctx, processing); exists {
		if err := q.fs.Delete(ctx, processing); err != nil {
			return fmt.Errorf("failed to delete processing message %v: %w", processing, err)
		}
	}
	return nil
}

func (q *Queue[T]) list(ctx context.Context, dir string) ([]storage.Object, error) {
	objects, err := q.fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", dir, err)
	}
	var ret []storage.Object
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			ret = append(ret, object)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name() < ret[j].Name() })
	return ret, nil
}

func (q *Queue[T]) load(ctx context.Context, dir string) ([]*Message[T], error) {
	objects, err := q.list(ctx, dir)
	if err != nil {
		return nil, err
	}
	var ret []*Message[T]
	for _, object := range objects {
		message, err := q.read(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		ret = append(ret, message)
	}
	return ret, nil
}

func (q *Queue[T]) write(ctx context.Context, URL string, m *Message[T]) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message %v: %w", m.MessageID, err)
	}
	if err = q.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write message %v: %w", URL, err)
	}
	return nil
}

func (q *Queue[T]) read(ctx context.Context, URL string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", URL, err)
	}
	message := &Message[T]{}
	if err := json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", URL, err)
	}
	return message, nil
}

func (m *Message[T]) filename() string {
	return fmt.Sprintf("%020d-%s.json", m.Seq, m.MessageID)
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
