package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRescore = "trafficpool.rescore"

const TaskDedup = "trafficpool.dedup"

type RescorePayload struct {
	Reason string `json:"reason"`
}

type DedupPayload struct {
	Reason string `json:"reason"`
}

func NewRescoreTask(payload RescorePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRescore, data), nil
}

func ParseRescorePayload(task *asynq.Task) (RescorePayload, error) {
	var payload RescorePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RescorePayload{}, err
	}
	return payload, nil
}

func NewDedupTask(payload DedupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDedup, data), nil
}

func ParseDedupPayload(task *asynq.Task) (DedupPayload, error) {
	var payload DedupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DedupPayload{}, err
	}
	return payload, nil
}
