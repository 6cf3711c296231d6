package model

import "time"

// Package model contains the cross-layer result shapes returned to callers.
// These are pure data structures; no business logic here.

// SagaSummary is the caller-visible account of the saga that backed an operation.
type SagaSummary struct {
	SagaID             string   `json:"saga_id"`
	Status             string   `json:"status"`
	Errors             []string `json:"errors,omitempty"`
	CompensationErrors []string `json:"compensation_errors,omitempty"`
}

// LifecycleResult is the structured result of one create/update/delete/restore
// operation. Callers always receive it, success or not; compensation errors in
// the saga summary signal that manual operator intervention is required.
type LifecycleResult struct {
	OperationType      string                       `json:"operation_type"`
	DocumentID         string                       `json:"document_id"`
	Timestamp          time.Time                    `json:"timestamp"`
	Success            bool                         `json:"success"`
	DatabaseOperations map[string]map[string]any    `json:"database_operations"`
	ValidationResults  *ConsistencyValidationResult `json:"validation_results,omitempty"`
	Issues             []string                     `json:"issues,omitempty"`
	Saga               SagaSummary                  `json:"saga"`
}

// ConsistencyValidationResult reports the cross-backend agreement check for one
// document after a saga ran.
type ConsistencyValidationResult struct {
	DocumentID   string          `json:"document_id"`
	OverallValid bool            `json:"overall_valid"`
	Checks       map[string]bool `json:"checks"`
	Issues       []string        `json:"issues,omitempty"`
}
