// Package scheduler runs background catalog refreshes through asynq and an
// in-process ticker.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCatalogRefresh = "catalog.refresh"

type CatalogRefreshPayload struct {
	Forced bool   `json:"forced"`
	Reason string `json:"reason,omitempty"`
}

func NewCatalogRefreshTask(payload CatalogRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogRefresh, data), nil
}

func ParseCatalogRefreshPayload(task *asynq.Task) (CatalogRefreshPayload, error) {
	var payload CatalogRefreshPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CatalogRefreshPayload{}, err
	}
	return payload, nil
}
