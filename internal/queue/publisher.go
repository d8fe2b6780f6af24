// Copyright (c) 2026 John Earle
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://github.com/yourusername/bcem/blob/main/LICENSE
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package queue publishes booking events to Redis as Celery-compatible tasks
// for the notification and calendar workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/staysync/internal/models"
)

// Celery task names per event type.
var taskNames = map[models.EventType]string{
	models.EventBookingCreated:    "notifications.tasks.booking_created",
	models.EventBookingUpdated:    "notifications.tasks.booking_updated",
	models.EventCleaningScheduled: "notifications.tasks.cleaning_scheduled",
}

// Publisher sends booking events to Redis in Celery task format.
type Publisher struct {
	rdb       *redis.Client
	queueName string
	newID     func() string
}

// NewPublisher creates a Redis publisher targeting queueName.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
		newID:     uuid.NewString,
	}
}

// celeryTask is the task body Celery workers decode.
type celeryTask struct {
	ID      string  `json:"id"`
	Task    string  `json:"task"`
	Args    []any   `json:"args"`
	Kwargs  any     `json:"kwargs"`
	Retries int     `json:"retries"`
	ETA     *string `json:"eta"`
}

// celeryMessage wraps a task for Redis transport.
type celeryMessage struct {
	Body            string         `json:"body"`
	ContentEncoding string         `json:"content-encoding"`
	ContentType     string         `json:"content-type"`
	Headers         map[string]any `json:"headers"`
	Properties      map[string]any `json:"properties"`
}

// encode builds the Celery envelope for event and returns it with its task id.
func (p *Publisher) encode(event models.BookingEvent) (string, string, error) {
	taskName, ok := taskNames[event.Type]
	if !ok {
		return "", "", fmt.Errorf("unknown event type %q", event.Type)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return "", "", fmt.Errorf("marshal booking event: %w", err)
	}

	taskID := p.newID()
	taskBody, err := json.Marshal(celeryTask{
		ID:     taskID,
		Task:   taskName,
		Args:   []any{string(eventJSON)},
		Kwargs: map[string]any{},
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal celery task: %w", err)
	}

	msg := celeryMessage{
		Body:            string(taskBody),
		ContentEncoding: "utf-8",
		ContentType:     "application/json",
		Headers: map[string]any{
			"lang":    "py",
			"task":    taskName,
			"id":      taskID,
			"retries": 0,
		},
		Properties: map[string]any{
			"correlation_id": taskID,
			"delivery_mode":  2,
			"delivery_tag":   taskID,
			"body_encoding":  "utf-8",
			"exchange":       p.queueName,
			"routing_key":    p.queueName,
			"delivery_info": map[string]string{
				"exchange":    p.queueName,
				"routing_key": p.queueName,
			},
		},
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", "", fmt.Errorf("marshal celery message: %w", err)
	}
	return string(msgJSON), taskID, nil
}

// Publish pushes event onto the queue.
func (p *Publisher) Publish(ctx context.Context, event models.BookingEvent) error {
	msg, taskID, err := p.encode(event)
	if err != nil {
		return err
	}

	// Celery consumes with BRPOP, so producers LPUSH.
	if err := p.rdb.LPush(ctx, p.queueName, msg).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published booking event",
		"task_id", taskID,
		"type", event.Type,
		"reservation_id", event.ReservationID,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
