package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskCatalogExtract = "catalog.extract"

type CatalogExtractPayload struct {
	JobID string `json:"jobId"`
}

func NewCatalogExtractTask(jobID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(CatalogExtractPayload{JobID: jobID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogExtract, data), nil
}

func ParseCatalogExtractPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload CatalogExtractPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.UUID{}, err
	}
	id, err := uuid.Parse(payload.JobID)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid job id %q: %w", payload.JobID, err)
	}
	return id, nil
}
