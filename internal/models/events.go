package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventName identifies a real-time event on the wire.
type EventName string

const (
	// client -> server
	EventUserConnected EventName = "user-connected"
	EventJoinProject   EventName = "join-project"
	EventLeaveProject  EventName = "leave-project"

	// room-scoped mutations, client -> server and echoed server -> client
	EventTaskCreated       EventName = "task-created"
	EventTaskUpdated       EventName = "task-updated"
	EventTaskDeleted       EventName = "task-deleted"
	EventTaskStatusChanged EventName = "task-status-changed"
	EventCommentAdded      EventName = "comment-added"
	EventCommentDeleted    EventName = "comment-deleted"
	EventUserTyping        EventName = "user-typing"

	// server -> client
	EventUserStatusChanged EventName = "user-status-changed"
	EventUserJoinedProject EventName = "user-joined-project"
)

// MutationEvents are relayed to the rest of a project room.
var MutationEvents = []EventName{
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskDeleted,
	EventTaskStatusChanged,
	EventCommentAdded,
	EventCommentDeleted,
	EventUserTyping,
}

var ErrInvalidPayload = errors.New("invalid event payload")

// Envelope is the frame exchanged over the WebSocket.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func Encode(event EventName, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type UserStatus string

const (
	UserOnline  UserStatus = "online"
	UserOffline UserStatus = "offline"
)

type UserStatusChanged struct {
	UserID int        `json:"userId"`
	Status UserStatus `json:"status"`
}

type UserJoinedProject struct {
	UserID    int `json:"userId,omitempty"`
	ProjectID int `json:"projectId"`
}

// ProjectScoped is implemented by every room-scoped mutation payload.
type ProjectScoped interface {
	Project() int
	Validate() error
}

type TaskPayload struct {
	ProjectID int   `json:"projectId"`
	Task      *Task `json:"task"`
}

func (p *TaskPayload) Project() int { return p.ProjectID }

func (p *TaskPayload) Validate() error {
	if p.ProjectID <= 0 || p.Task == nil || p.Task.ID <= 0 {
		return ErrInvalidPayload
	}
	return nil
}

type TaskDeletedPayload struct {
	ProjectID int `json:"projectId"`
	TaskID    int `json:"taskId"`
}

func (p *TaskDeletedPayload) Project() int { return p.ProjectID }

func (p *TaskDeletedPayload) Validate() error {
	if p.ProjectID <= 0 || p.TaskID <= 0 {
		return ErrInvalidPayload
	}
	return nil
}

type TaskStatusPayload struct {
	ProjectID int        `json:"projectId"`
	TaskID    int        `json:"taskId"`
	NewStatus TaskStatus `json:"newStatus"`
}

func (p *TaskStatusPayload) Project() int { return p.ProjectID }

func (p *TaskStatusPayload) Validate() error {
	if p.ProjectID <= 0 || p.TaskID <= 0 || !p.NewStatus.Valid() {
		return ErrInvalidPayload
	}
	return nil
}

type CommentAddedPayload struct {
	ProjectID int      `json:"projectId"`
	TaskID    int      `json:"taskId"`
	Comment   *Comment `json:"comment"`
}

func (p *CommentAddedPayload) Project() int { return p.ProjectID }

func (p *CommentAddedPayload) Validate() error {
	if p.ProjectID <= 0 || p.TaskID <= 0 || p.Comment == nil || p.Comment.ID <= 0 {
		return ErrInvalidPayload
	}
	return nil
}

type CommentDeletedPayload struct {
	ProjectID int `json:"projectId"`
	TaskID    int `json:"taskId"`
	CommentID int `json:"commentId"`
}

func (p *CommentDeletedPayload) Project() int { return p.ProjectID }

func (p *CommentDeletedPayload) Validate() error {
	if p.ProjectID <= 0 || p.TaskID <= 0 || p.CommentID <= 0 {
		return ErrInvalidPayload
	}
	return nil
}

type UserTypingPayload struct {
	ProjectID int    `json:"projectId"`
	TaskID    int    `json:"taskId"`
	UserName  string `json:"userName"`
}

func (p *UserTypingPayload) Project() int { return p.ProjectID }

func (p *UserTypingPayload) Validate() error {
	if p.ProjectID <= 0 || p.TaskID <= 0 {
		return ErrInvalidPayload
	}
	return nil
}

// NewMutationPayload returns an empty payload for a room-scoped event, or
// nil if the event is not a mutation.
func NewMutationPayload(event EventName) ProjectScoped {
	switch event {
	case EventTaskCreated, EventTaskUpdated:
		return &TaskPayload{}
	case EventTaskDeleted:
		return &TaskDeletedPayload{}
	case EventTaskStatusChanged:
		return &TaskStatusPayload{}
	case EventCommentAdded:
		return &CommentAddedPayload{}
	case EventCommentDeleted:
		return &CommentDeletedPayload{}
	case EventUserTyping:
		return &UserTypingPayload{}
	}
	return nil
}
