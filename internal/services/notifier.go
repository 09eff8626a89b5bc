package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/realtime"
)

// =========================
// Attempt notifier
// =========================

// AttemptNotifier mirrors attempt transitions onto SSE channels: the owning
// student's user channel plus the case channel instructors watch.
type AttemptNotifier interface {
	AttemptEnsured(attempt *types.CaseAttempt)
	AttemptSaved(attempt *types.CaseAttempt, section types.AttemptSection)
	AttemptCompleted(attempt *types.CaseAttempt)
}

type attemptNotifier struct {
	emit SSEEmitter
}

func NewAttemptNotifier(emit SSEEmitter) AttemptNotifier {
	return &attemptNotifier{emit: emit}
}

func (n *attemptNotifier) AttemptEnsured(attempt *types.CaseAttempt) {
	if n == nil || n.emit == nil || attempt == nil {
		return
	}
	n.fanOut(attempt, realtime.SSEMessage{
		Event: realtime.SSEEventAttemptEnsured,
		Data: map[string]any{
			"attempt_id": attempt.ID,
			"case_id":    attempt.CaseID,
			"user_id":    attempt.UserID,
			"status":     attempt.Status,
		},
	})
}

func (n *attemptNotifier) AttemptSaved(attempt *types.CaseAttempt, section types.AttemptSection) {
	if n == nil || n.emit == nil || attempt == nil {
		return
	}
	n.fanOut(attempt, realtime.SSEMessage{
		Event: realtime.SSEEventAttemptSaved,
		Data: map[string]any{
			"attempt_id": attempt.ID,
			"case_id":    attempt.CaseID,
			"user_id":    attempt.UserID,
			"section":    section,
			"last_page":  attempt.LastPage,
		},
	})
}

func (n *attemptNotifier) AttemptCompleted(attempt *types.CaseAttempt) {
	if n == nil || n.emit == nil || attempt == nil {
		return
	}
	n.fanOut(attempt, realtime.SSEMessage{
		Event: realtime.SSEEventAttemptCompleted,
		Data: map[string]any{
			"attempt_id":   attempt.ID,
			"case_id":      attempt.CaseID,
			"user_id":      attempt.UserID,
			"completed_at": attempt.CompletedAt,
			"pdf_url":      attempt.PDFURL,
		},
	})
}

func (n *attemptNotifier) fanOut(attempt *types.CaseAttempt, msg realtime.SSEMessage) {
	ctx := context.Background()
	if attempt.UserID != uuid.Nil {
		msg.Channel = realtime.UserChannel(attempt.UserID)
		n.emit.Emit(ctx, msg)
	}
	if attempt.CaseID != uuid.Nil {
		msg.Channel = realtime.CaseAttemptsChannel(attempt.CaseID)
		n.emit.Emit(ctx, msg)
	}
}

// =========================
// Case notifier
// =========================

type CaseNotifier interface {
	CasePublished(c *types.Case)
}

type caseNotifier struct {
	emit SSEEmitter
}

func NewCaseNotifier(emit SSEEmitter) CaseNotifier {
	return &caseNotifier{emit: emit}
}

func (n *caseNotifier) CasePublished(c *types.Case) {
	if n == nil || n.emit == nil || c == nil || c.OwnerID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(c.OwnerID),
		Event:   realtime.SSEEventCasePublished,
		Data: map[string]any{
			"case_id":      c.ID,
			"title":        c.Title,
			"published_at": c.PublishedAt,
		},
	})
}

// =========================
// User notifier
// =========================

type UserNotifier interface {
	AvatarUpdated(userID uuid.UUID, avatarURL string)
}

type userNotifier struct {
	emit SSEEmitter
}

func NewUserNotifier(emit SSEEmitter) UserNotifier {
	return &userNotifier{emit: emit}
}

func (n *userNotifier) AvatarUpdated(userID uuid.UUID, avatarURL string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventUserAvatarUpdated,
		Data:    map[string]any{"avatar_url": avatarURL},
	})
}
