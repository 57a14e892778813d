package audit

import (
	"context"

	"github.com/stagelive/queue-service/pkg/log"
)

// Audit actions for the performance queue.
const (
	ActionJoin   = "queue.join"
	ActionLeave  = "queue.leave"
	ActionCallUp = "queue.call_up"
	ActionReady  = "queue.ready"
	ActionGoLive = "queue.start"
	ActionEnd    = "queue.end"
	ActionRemove = "queue.remove"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, roomID, userID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, roomID, userID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
