package service

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/unipath-io/unipath-api/internal/dto"
)

const (
	feedCacheTTL       = 30 * time.Minute
	feedSendBufferSize = 16
)

// FeedConnectionOptions wraps metadata extracted during the upgrade.
type FeedConnectionOptions struct {
	UserID   string
	Role     string
	ThreadID uint
}

// ThreadFeedService pushes live thread events to websocket subscribers
// and fans them out across nodes via NATS.
type ThreadFeedService interface {
	FeedPublisher
	ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions)
	LastEvent(ctx context.Context, threadID uint) (dto.FeedEvent, bool, error)
	Start(ctx context.Context)
}

type threadFeedService struct {
	redis       *redis.Client
	nats        *nats.Conn
	natsSubject string
	cachePrefix string
	logger      zerolog.Logger
	hub         *feedHub
	nodeID      string
}

type feedHub struct {
	mu      sync.RWMutex
	threads map[uint]map[*feedClient]struct{}
}

type feedClient struct {
	conn   *websocket.Conn
	send   chan dto.FeedEvent
	closed chan struct{}
	once   sync.Once
}

// feedEnvelope is the cross-node wire format.
type feedEnvelope struct {
	Source string        `json:"source"`
	Event  dto.FeedEvent `json:"event"`
}

// NewThreadFeedService creates the live feed service. Both redis and
// nats are optional; absent backends degrade to node-local delivery.
func NewThreadFeedService(redisClient *redis.Client, natsConn *nats.Conn, subjectBase string, logger zerolog.Logger) ThreadFeedService {
	subject := "unipath.threads.feed"
	cachePrefix := "threads:feed:last"
	if subjectBase != "" {
		subject = subjectBase + ".threads.feed"
		cachePrefix = subjectBase + ":threads:feed:last"
	}

	return &threadFeedService{
		redis:       redisClient,
		nats:        natsConn,
		natsSubject: subject,
		cachePrefix: cachePrefix,
		logger:      logger.With().Str("component", "thread_feed_service").Logger(),
		hub:         &feedHub{threads: map[uint]map[*feedClient]struct{}{}},
		nodeID:      uuid.NewString(),
	}
}

// Start subscribes to the NATS fan-out subject. Events published by
// other nodes are delivered to local subscribers only.
func (s *threadFeedService) Start(ctx context.Context) {
	if s.nats == nil {
		return
	}

	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		var envelope feedEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			s.logger.Warn().Err(err).Msg("dropping malformed feed envelope")
			return
		}
		if envelope.Source == s.nodeID {
			return
		}
		s.hub.broadcast(envelope.Event)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to unsubscribe feed subject")
		}
	}()
}

// PublishMessage delivers the event locally, caches it as the thread's
// latest event and fans it out to the other nodes.
func (s *threadFeedService) PublishMessage(ctx context.Context, event dto.FeedEvent) {
	s.hub.broadcast(event)

	payload, err := json.Marshal(feedEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode feed event")
		return
	}

	if s.redis != nil {
		key := s.cacheKey(event.ThreadID)
		if err := s.redis.Set(ctx, key, payload, feedCacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache feed event")
		}
	}

	if s.nats != nil {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish feed event")
		}
	}
}

// LastEvent returns the most recent cached event for a thread.
func (s *threadFeedService) LastEvent(ctx context.Context, threadID uint) (dto.FeedEvent, bool, error) {
	if s.redis == nil {
		return dto.FeedEvent{}, false, nil
	}

	raw, err := s.redis.Get(ctx, s.cacheKey(threadID)).Result()
	if err == redis.Nil {
		return dto.FeedEvent{}, false, nil
	}
	if err != nil {
		return dto.FeedEvent{}, false, err
	}

	var envelope feedEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return dto.FeedEvent{}, false, err
	}
	return envelope.Event, true, nil
}

// ServeConnection pumps thread events to one websocket subscriber until
// the peer disconnects. It blocks and must run on the upgraded
// connection's goroutine.
func (s *threadFeedService) ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions) {
	client := &feedClient{
		conn:   conn,
		send:   make(chan dto.FeedEvent, feedSendBufferSize),
		closed: make(chan struct{}),
	}

	s.hub.join(opts.ThreadID, client)
	defer s.hub.leave(opts.ThreadID, client)

	s.logger.Debug().
		Uint("thread_id", opts.ThreadID).
		Str("user_id", opts.UserID).
		Str("role", opts.Role).
		Msg("feed subscriber connected")

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				client.close()
				return
			}
		}
	}()

	for {
		select {
		case event := <-client.send:
			if err := conn.WriteJSON(event); err != nil {
				client.close()
				return
			}
		case <-client.closed:
			return
		}
	}
}

func (s *threadFeedService) cacheKey(threadID uint) string {
	return s.cachePrefix + ":" + strconv.FormatUint(uint64(threadID), 10)
}

func (c *feedClient) close() {
	c.once.Do(func() { close(c.closed) })
}

func (h *feedHub) join(threadID uint, client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.threads[threadID] == nil {
		h.threads[threadID] = map[*feedClient]struct{}{}
	}
	h.threads[threadID][client] = struct{}{}
}

func (h *feedHub) leave(threadID uint, client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.threads[threadID], client)
	if len(h.threads[threadID]) == 0 {
		delete(h.threads, threadID)
	}
}

func (h *feedHub) broadcast(event dto.FeedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.threads[event.ThreadID] {
		select {
		case client.send <- event:
		default:
			// Slow subscriber; drop rather than block delivery.
		}
	}
}
