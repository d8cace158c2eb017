package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/congdong-blog/internal/database"
	"github.com/congdong-blog/internal/logger"
	"github.com/congdong-blog/internal/provider"
	"github.com/congdong-blog/internal/queue"
	"github.com/congdong-blog/internal/storage"

	"github.com/hibiken/asynq"
)

// PoolChecker 连接池健康检查
type PoolChecker interface {
	Ping(ctx context.Context) error
	Stats() database.PoolStats
}

// Consumer 异步任务消费者
type Consumer struct {
	source storage.ImageStore
	target storage.ImageStore
	pool   PoolChecker
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{
		source: c.ImageStore,
		target: c.MirrorStore,
	}
	if c.Pool != nil {
		consumer.pool = c.Pool
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskImageMirror, c.handleImageMirror)
}

func (c *Consumer) handleImageMirror(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_image_mirror_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ImageMirrorPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_image_mirror_unmarshal_failed", "error", err)
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		logger.Debugw("worker_image_mirror_skip_invalid_payload", "post_id", payload.PostID)
		return nil
	}
	if c.source == nil || c.target == nil {
		logger.Warnw("worker_image_mirror_skip_store_nil",
			"image", name,
			"source_nil", c.source == nil,
			"target_nil", c.target == nil,
		)
		return nil
	}

	exists, err := c.target.Exists(ctx, name)
	if err != nil {
		logger.Warnw("worker_image_mirror_head_failed", "image", name, "error", err)
		return err
	}
	if exists {
		logger.Debugw("worker_image_mirror_skip_exists", "image", name)
		return nil
	}

	reader, err := c.source.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
			logger.Warnw("worker_image_mirror_source_missing", "image", name, "post_id", payload.PostID)
			return fmt.Errorf("open %s: %v: %w", name, err, asynq.SkipRetry)
		}
		return err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	if err := c.target.Save(ctx, name, data, payload.ContentType); err != nil {
		logger.Warnw("worker_image_mirror_upload_failed", "image", name, "error", err)
		return err
	}
	logger.Infow("worker_image_mirrored",
		"image", name,
		"post_id", payload.PostID,
		"bytes", len(data),
		"target", c.target.Driver(),
	)
	return nil
}
