package queue

import (
	"encoding/json"

	"github.com/congdong-blog/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskImageMirror 本地图片镜像到对象存储任务
	TaskImageMirror = constants.TaskImageMirror
)

// ImageMirrorPayload 图片镜像任务载荷
type ImageMirrorPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	PostID      uint   `json:"post_id"`
}

// NewImageMirrorTask 创建图片镜像任务
func NewImageMirrorTask(payload ImageMirrorPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskImageMirror, body), nil
}
