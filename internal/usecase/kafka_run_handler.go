package usecase

import (
	"context"
	"errors"

	"TrendPull/internal/domain/models"
	pkgkafka "TrendPull/pkg/kafka"
	"TrendPull/pkg/logger"
)

// KafkaRunHandler consumes run requests from Kafka and executes them.
type KafkaRunHandler struct {
	topic string
	runs  *RunUseCase
	log   *logger.Logger
}

func NewKafkaRunHandler(topic string, runs *RunUseCase, log *logger.Logger) *KafkaRunHandler {
	return &KafkaRunHandler{topic: topic, runs: runs, log: log}
}

func (h *KafkaRunHandler) Topic() string { return h.topic }

// Handle decodes a models.RunRequest. Malformed payloads, schema and configuration
// errors are permanent; anything else is retried by the consumer.
func (h *KafkaRunHandler) Handle(ctx context.Context, b []byte) error {
	req, err := decodeRunRequest(b)
	if err != nil {
		return pkgkafka.Permanent(err)
	}

	out, err := h.runs.Execute(ctx, req)
	if err != nil {
		if IsInputError(err) {
			return pkgkafka.Permanent(err)
		}
		return err
	}
	h.log.Debug("kafka run handled",
		logger.String("run_id", out.Summary.Run.ID),
		logger.Int("signals", out.Summary.Signals))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaRunHandler)(nil)

// IsInputError reports whether err comes from the request itself, so that
// running it again cannot succeed.
func IsInputError(err error) bool {
	var se *models.SchemaError
	var ce *models.ConfigurationError
	return errors.As(err, &se) || errors.As(err, &ce) || errors.Is(err, ErrNoBarSource)
}
