package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"shoplens/internal/model"
	"shoplens/internal/repository"
)

// AnswerLogWorker drains the answer-log queue into MySQL.
type AnswerLogWorker struct {
	conn      *amqp.Connection
	repo      *repository.AnswerLogRepository
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnswerLogWorker(conn *amqp.Connection, repo *repository.AnswerLogRepository, queueName string, logger *zap.Logger) *AnswerLogWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerLogWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *AnswerLogWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var entry model.AnswerLog
				if err := json.Unmarshal(d.Body, &entry); err != nil {
					w.logger.Warn("worker decode answer log failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(&entry); err != nil {
					w.logger.Warn("worker persist answer log failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *AnswerLogWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
