// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Fatal startup errors
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Routing and feedback
	ErrCodeUnknownAgent           ErrorCode = "UNKNOWN_AGENT"
	ErrCodePerformanceStoreFailed ErrorCode = "PERFORMANCE_STORE_FAILED"
	ErrCodeAuditIndexFailed       ErrorCode = "AUDIT_INDEX_FAILED"

	// Personalization memory
	ErrCodeInvalidIdentityKey ErrorCode = "INVALID_IDENTITY_KEY"
	ErrCodeTurnNotFound       ErrorCode = "TURN_NOT_FOUND"
	ErrCodeInvalidFeedback    ErrorCode = "INVALID_FEEDBACK"
	ErrCodeSnapshotLoadFailed ErrorCode = "SNAPSHOT_LOAD_FAILED"
	ErrCodeSnapshotSaveFailed ErrorCode = "SNAPSHOT_SAVE_FAILED"

	// Advisor
	ErrCodeAgentExecutionFailed    ErrorCode = "AGENT_EXECUTION_FAILED"
	ErrCodeEscalationPublishFailed ErrorCode = "ESCALATION_PUBLISH_FAILED"

	// Job input
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"

	// Workflow engine
	ErrCodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// HasCode reports whether err wraps a StandardError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationError reports a registry or config problem that must stop the process.
func NewConfigurationError(details string) *StandardError {
	return newError(ErrCodeConfiguration, "Invalid configuration", details, false)
}

// NewUnknownAgentError is returned when feedback names an agent that is not registered.
func NewUnknownAgentError(agent string) *StandardError {
	return newError(ErrCodeUnknownAgent, "Agent is not registered", fmt.Sprintf("agent: %s", agent), false).
		WithMetadata("agent", agent)
}

func NewPerformanceStoreFailedError(op string, err error) *StandardError {
	return newError(ErrCodePerformanceStoreFailed, "Performance store operation failed",
		fmt.Sprintf("op: %s, error: %s", op, err.Error()), true)
}

func NewAuditIndexFailedError(err error) *StandardError {
	return newError(ErrCodeAuditIndexFailed, "Audit record indexing failed", err.Error(), true)
}

func NewInvalidIdentityKeyError() *StandardError {
	return newError(ErrCodeInvalidIdentityKey, "Identity key is empty", "neither userId nor sessionId supplied", false)
}

func NewTurnNotFoundError(key, turnID string) *StandardError {
	return newError(ErrCodeTurnNotFound, "Conversation turn not found",
		fmt.Sprintf("key: %s, turnId: %s", key, turnID), false)
}

func NewInvalidFeedbackError(value string) *StandardError {
	return newError(ErrCodeInvalidFeedback, "Unsupported feedback value", fmt.Sprintf("feedback: %s", value), false)
}

func NewSnapshotLoadFailedError(key string, err error) *StandardError {
	return newError(ErrCodeSnapshotLoadFailed, "Personalization snapshot load failed",
		fmt.Sprintf("key: %s, error: %s", key, err.Error()), true)
}

func NewSnapshotSaveFailedError(key string, err error) *StandardError {
	return newError(ErrCodeSnapshotSaveFailed, "Personalization snapshot save failed",
		fmt.Sprintf("key: %s, error: %s", key, err.Error()), true)
}

func NewAgentExecutionFailedError(agent string, err error) *StandardError {
	return newError(ErrCodeAgentExecutionFailed, "Agent execution failed",
		fmt.Sprintf("agent: %s, error: %s", agent, err.Error()), true)
}

func NewEscalationPublishFailedError(err error) *StandardError {
	return newError(ErrCodeEscalationPublishFailed, "Escalation publish failed", err.Error(), true)
}

// NewInputValidationFailedError creates a non-retryable job input error.
func NewInputValidationFailedError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input validation failed", details, false)
}

func NewBrokerUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeBrokerUnavailable, "Zeebe broker unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true).
		WithMetadata("operation", operation)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes where they differ.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUnknownAgent:          "ROUTING_UNKNOWN_AGENT",
	ErrCodeTurnNotFound:          "MEMORY_TURN_NOT_FOUND",
	ErrCodeInvalidFeedback:       "MEMORY_INVALID_FEEDBACK",
	ErrCodeInputValidationFailed: "INPUT_VALIDATION_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePerformanceStoreFailed,
		ErrCodeSnapshotLoadFailed,
		ErrCodeSnapshotSaveFailed,
		ErrCodeEscalationPublishFailed,
		ErrCodeBrokerUnavailable:
		return 3

	case ErrCodeAuditIndexFailed,
		ErrCodeAgentExecutionFailed:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "AGENT") || strings.Contains(codeStr, "PERFORMANCE"):
		return "ROUTING"
	case strings.Contains(codeStr, "SNAPSHOT") || strings.Contains(codeStr, "TURN") ||
		strings.Contains(codeStr, "IDENTITY") || strings.Contains(codeStr, "FEEDBACK"):
		return "MEMORY"
	case strings.Contains(codeStr, "AUDIT"):
		return "AUDIT"
	case strings.Contains(codeStr, "ESCALATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "BROKER"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
