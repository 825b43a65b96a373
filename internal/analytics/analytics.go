// Package analytics emits matchmaking events to Kafka for offline analysis.
// Emission is asynchronous and best-effort: a broker outage must never block
// or fail a matchmaking operation.
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/XR-stb/GMatch/internal/match"
)

// EventType identifies a matchmaking event.
type EventType string

const (
	EventPlayerCreated     EventType = "player_created"
	EventPlayerRemoved     EventType = "player_removed"
	EventPlayerJoinedQueue EventType = "player_joined_queue"
	EventPlayerLeftQueue   EventType = "player_left_queue"
	EventMatchCreated      EventType = "match_created"
)

// Event is the payload published for every matchmaking event.
type Event struct {
	EventType EventType `json:"event_type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	PlayerID  uint64   `json:"player_id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Rating    int      `json:"rating,omitempty"`
	RoomID    uint64   `json:"room_id,omitempty"`
	PlayerIDs []uint64 `json:"player_ids,omitempty"`
	QueueSize int      `json:"queue_size,omitempty"`
	AvgRating float64  `json:"avg_rating,omitempty"`
}

// ProducerStats tracks producer delivery counters.
type ProducerStats struct {
	MessagesSent    int64 `json:"messages_sent"`
	MessagesErrored int64 `json:"messages_errored"`
}

// Producer wraps an async kafka-go writer.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger

	sent    atomic.Int64
	errored atomic.Int64
}

// NewProducer creates an async Kafka producer for the given brokers and
// topic.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{logger: logger}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           100 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				p.errored.Add(int64(len(messages)))
				p.logger.Warn("analytics delivery failed",
					zap.Int("messages", len(messages)), zap.Error(err))
				return
			}
			p.sent.Add(int64(len(messages)))
		},
	}
	return p
}

// Emit queues an event for delivery. Marshalling errors are logged and
// dropped.
func (p *Producer) Emit(event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal analytics event",
			zap.String("event_type", string(event.EventType)), zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(event.EventType),
		Value: value,
		Time:  event.Timestamp,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.errored.Inc()
		p.logger.Warn("failed to queue analytics event",
			zap.String("event_type", string(event.EventType)), zap.Error(err))
	}
}

// Stats returns delivery counters.
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesSent:    p.sent.Load(),
		MessagesErrored: p.errored.Load(),
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Service is the high-level emission surface used by the server. A disabled
// service (or one with a nil producer) is a no-op, so call sites never need
// to branch.
type Service struct {
	producer *Producer
	enabled  bool
}

func NewService(producer *Producer, enabled bool) *Service {
	return &Service{producer: producer, enabled: enabled && producer != nil}
}

func (s *Service) Enabled() bool { return s.enabled }

func (s *Service) PlayerCreated(p *match.Player) {
	s.emit(Event{
		EventType: EventPlayerCreated,
		PlayerID:  uint64(p.ID()),
		Name:      p.Name(),
		Rating:    p.Rating(),
	})
}

func (s *Service) PlayerRemoved(id match.PlayerID) {
	s.emit(Event{
		EventType: EventPlayerRemoved,
		PlayerID:  uint64(id),
	})
}

func (s *Service) PlayerQueueStatus(id match.PlayerID, inQueue bool, queueSize int) {
	eventType := EventPlayerLeftQueue
	if inQueue {
		eventType = EventPlayerJoinedQueue
	}
	s.emit(Event{
		EventType: eventType,
		PlayerID:  uint64(id),
		QueueSize: queueSize,
	})
}

func (s *Service) MatchCreated(room *match.Room) {
	players := room.Players()
	ids := make([]uint64, 0, len(players))
	for _, p := range players {
		ids = append(ids, uint64(p.ID()))
	}
	s.emit(Event{
		EventType: EventMatchCreated,
		RoomID:    uint64(room.ID()),
		PlayerIDs: ids,
		AvgRating: room.AverageRating(),
	})
}

func (s *Service) emit(event Event) {
	if !s.enabled {
		return
	}
	event.EventID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	s.producer.Emit(event)
}
