package queue

import (
	"context"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher enqueues evaluation IDs for asynchronous grading.
type Publisher interface {
	PublishEvaluation(ctx context.Context, evaluationID uint) error
}

// Evaluations is the NATS-backed evaluation queue. Messages carry a single
// decimal evaluation ID; queue-group subscription gives one delivery per
// message across API replicas.
type Evaluations struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewEvaluations wraps an established NATS connection.
func NewEvaluations(conn *nats.Conn, subject string, logger zerolog.Logger) *Evaluations {
	return &Evaluations{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "evaluation_queue").Logger(),
	}
}

// PublishEvaluation enqueues one evaluation for grading.
func (q *Evaluations) PublishEvaluation(_ context.Context, evaluationID uint) error {
	if err := q.conn.Publish(q.subject, []byte(strconv.FormatUint(uint64(evaluationID), 10))); err != nil {
		return err
	}

	q.logger.Debug().Uint("evaluation_id", evaluationID).Msg("evaluation enqueued")
	return nil
}

// Handler processes one dequeued evaluation.
type Handler func(ctx context.Context, evaluationID uint)

// Subscribe starts consuming evaluation IDs in the "graders" queue group and
// returns the subscription so the caller can drain it on shutdown. Messages
// that do not parse as IDs are logged and dropped.
func (q *Evaluations) Subscribe(ctx context.Context, handle Handler) (*nats.Subscription, error) {
	sub, err := q.conn.QueueSubscribe(q.subject, "graders", func(msg *nats.Msg) {
		id, err := strconv.ParseUint(string(msg.Data), 10, 64)
		if err != nil {
			q.logger.Error().Str("payload", string(msg.Data)).Msg("discarding malformed queue message")
			return
		}

		handle(ctx, uint(id))
	})
	if err != nil {
		return nil, err
	}

	q.logger.Info().Str("subject", q.subject).Msg("evaluation worker subscribed")
	return sub, nil
}
