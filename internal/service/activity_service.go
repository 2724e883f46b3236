package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/websocket"
)

// ActivityEntry is one loan lifecycle event to be appended to the history.
type ActivityEntry struct {
	UserID      uint
	Action      string
	EntityType  string
	EntityID    uint
	OldData     interface{}
	NewData     interface{}
	Description string
}

// ActivityRecorder is the sink the loan service writes lifecycle events to.
// Recording is best-effort and must never fail the operation that produced
// the event.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

// ActivityService exposes the activity history and implements ActivityRecorder.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, filter repository.ActivityFilter) ([]model.ActivityLog, int64, error)
}

type activityService struct {
	repo repository.ActivityRepository
	hub  *websocket.Hub
}

// NewActivityService returns an ActivityService writing to repo and pushing
// events to hub. hub may be nil.
func NewActivityService(repo repository.ActivityRepository, hub *websocket.Hub) ActivityService {
	return &activityService{repo: repo, hub: hub}
}

// Record appends the entry and broadcasts it to connected dashboard clients.
// It is called after the primary transaction has committed; a failed write is
// logged and swallowed.
func (s *activityService) Record(ctx context.Context, entry ActivityEntry) {
	logEntry := model.ActivityLog{
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Description: entry.Description,
	}
	if entry.UserID != 0 {
		uid := entry.UserID
		logEntry.UserID = &uid
	}
	if entry.OldData != nil {
		if b, err := json.Marshal(entry.OldData); err == nil {
			logEntry.OldData = string(b)
		}
	}
	if entry.NewData != nil {
		if b, err := json.Marshal(entry.NewData); err == nil {
			logEntry.NewData = string(b)
		}
	}

	if err := s.repo.Log(ctx, &logEntry); err != nil {
		log.Printf("activity log write failed (action=%s entity=%s/%d): %v",
			entry.Action, entry.EntityType, entry.EntityID, err)
	}

	s.broadcast(entry)
}

func (s *activityService) broadcast(entry ActivityEntry) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type":        "activity",
		"action":      entry.Action,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"description": entry.Description,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	// Never block the request path on slow dashboard consumers
	select {
	case s.hub.Broadcast <- msg:
	default:
	}
}

func (s *activityService) List(ctx context.Context, filter repository.ActivityFilter) ([]model.ActivityLog, int64, error) {
	return s.repo.List(ctx, filter)
}
