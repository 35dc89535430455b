// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides structured JSON logging shared by every
// component of the governance core.
package telemetry

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

// Logger emits structured JSON log lines tagged with component/instance
// identity so logs from many processes can be correlated downstream.
type Logger struct {
	Component  string
	InstanceID string
	Container  string
}

// entry is the on-wire shape of a single structured log line.
type entry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      Level                  `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	WorkflowID string                 `json:"workflow_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the named component, reading instance identity
// from the environment the way the rest of the process is configured.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}

	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
	}
}

func (l *Logger) log(level Level, workflowID, requestID, message string, fields map[string]interface{}) {
	e := entry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		WorkflowID: workflowID,
		RequestID:  requestID,
		Message:    message,
		Fields:     fields,
	}

	b, err := json.Marshal(e)
	if err != nil {
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	log.Println(string(b))
}

func (l *Logger) Debug(workflowID, requestID, message string, fields map[string]interface{}) {
	l.log(DEBUG, workflowID, requestID, message, fields)
}

func (l *Logger) Info(workflowID, requestID, message string, fields map[string]interface{}) {
	l.log(INFO, workflowID, requestID, message, fields)
}

func (l *Logger) Warn(workflowID, requestID, message string, fields map[string]interface{}) {
	l.log(WARN, workflowID, requestID, message, fields)
}

func (l *Logger) Error(workflowID, requestID, message string, fields map[string]interface{}) {
	l.log(ERROR, workflowID, requestID, message, fields)
}
