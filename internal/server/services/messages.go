package services

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
)

const (
	maxMessageLen = 2000

	defaultMessageLimit = 50
	maxMessageLimit     = 200

	// conversationScan bounds how much history Conversations groups.
	conversationScan = 1000
)

// ConversationView is one thread between two users. Blocked threads are
// returned empty.
type ConversationView struct {
	CounterpartID string            `json:"counterpartId"`
	Messages      []*models.Message `json:"messages"`
	Blocked       bool              `json:"blocked"`
	BlockedBy     bool              `json:"blockedBy"`
}

type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pusher      Pusher
	logger      logging.Logger
}

func NewMessageService(db *sql.DB, repomanager repomanager.RepositoryManager, pusher Pusher, logger logging.Logger) *MessageService {
	return &MessageService{
		db:          db,
		repomanager: repomanager,
		pusher:      pusher,
		logger:      logger.With("module", "messages"),
	}
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", validationError("message text is required")
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return "", validationError("message is longer than %d characters", maxMessageLen)
	}
	return text, nil
}

func (s *MessageService) blocked(ctx context.Context, userID, otherID string) (models.BlockStatus, error) {
	return s.repomanager.Blocks(s.db).Status(ctx, userID, otherID)
}

// Send stores a message and pushes it. A nil recipientID makes it a
// broadcast visible to everyone.
func (s *MessageService) Send(ctx context.Context, senderID string, recipientID *string, text string) (*models.Message, error) {
	if err := requireUser(senderID); err != nil {
		return nil, err
	}
	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}

	if recipientID != nil {
		r := strings.TrimSpace(*recipientID)
		if r == "" {
			recipientID = nil
		} else {
			if r == senderID {
				return nil, validationError("cannot message yourself")
			}
			status, err := s.blocked(ctx, senderID, r)
			if err != nil {
				return nil, err
			}
			if status.Any() {
				return nil, common.ErrorBlocked
			}
			recipientID = &r
		}
	}

	m, err := s.repomanager.Messages(s.db).Create(ctx, &models.Message{SenderID: senderID, RecipientID: recipientID, Text: text})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "message stored", "message_id", m.ID, "sender_id", senderID)
	s.push(ctx, realtime.EventMessage, m, m)
	return m, nil
}

// push sends ev to both parties of m, or to everyone for a broadcast.
func (s *MessageService) push(ctx context.Context, typ string, m *models.Message, payload any) {
	if s.pusher == nil {
		return
	}

	ev := realtime.Event{Type: typ, From: m.SenderID, Payload: payload}
	var err error
	if m.RecipientID == nil {
		err = s.pusher.Broadcast(ctx, ev)
	} else {
		ev.To = *m.RecipientID
		err = s.pusher.SendToUsers(ctx, ev, *m.RecipientID, m.SenderID)
	}
	if err != nil {
		s.logger.Warn(ctx, "realtime push failed", "type", typ, "error", err)
	}
}

func (s *MessageService) Conversation(ctx context.Context, userID, otherID string, limit int, before *time.Time) (*ConversationView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(otherID) == "" {
		return nil, validationError("counterpart id is required")
	}

	view := &ConversationView{CounterpartID: otherID, Messages: []*models.Message{}}

	status, err := s.blocked(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if status.Any() {
		view.Blocked = status.Blocked
		view.BlockedBy = status.BlockedBy
		return view, nil
	}

	limit = common.ClampLimit(limit, defaultMessageLimit, maxMessageLimit)
	msgs, err := s.repomanager.Messages(s.db).ListBetween(ctx, userID, otherID, limit, before)
	if err != nil {
		return nil, err
	}
	view.Messages = msgs
	return view, nil
}

// Conversations derives the user's threads from message history, newest
// first. Threads with a block in either direction are left out.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	msgs, err := s.repomanager.Messages(s.db).ListInvolving(ctx, userID, conversationScan)
	if err != nil {
		return nil, err
	}

	byCounterpart := make(map[string]*models.Conversation)
	ordered := []*models.Conversation{}
	for _, m := range msgs {
		if m.RecipientID == nil {
			continue
		}
		other := m.SenderID
		if other == userID {
			other = *m.RecipientID
		}

		c, ok := byCounterpart[other]
		if !ok {
			// history is newest first, so the first hit is the last message
			c = &models.Conversation{CounterpartID: other, LastMessage: m}
			byCounterpart[other] = c
			ordered = append(ordered, c)
		}
		if *m.RecipientID == userID && m.ReadAt == nil {
			c.UnreadCount++
		}
	}

	result := make([]*models.Conversation, 0, len(ordered))
	blocks := s.repomanager.Blocks(s.db)
	for _, c := range ordered {
		status, err := blocks.Status(ctx, userID, c.CounterpartID)
		if err != nil {
			return nil, err
		}
		if status.Any() {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (s *MessageService) Broadcasts(ctx context.Context, limit int) ([]*models.Message, error) {
	limit = common.ClampLimit(limit, defaultMessageLimit, maxMessageLimit)
	return s.repomanager.Messages(s.db).ListBroadcasts(ctx, limit)
}

// own loads a message sent by senderID.
func (s *MessageService) own(ctx context.Context, senderID, id string) (*models.Message, error) {
	if err := requireUser(senderID); err != nil {
		return nil, err
	}
	if err := requireID("message", id); err != nil {
		return nil, err
	}
	m, err := s.repomanager.Messages(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SenderID != senderID {
		return nil, common.ErrorForbidden
	}
	return m, nil
}

func (s *MessageService) Edit(ctx context.Context, senderID, id, text string) (*models.Message, error) {
	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.own(ctx, senderID, id); err != nil {
		return nil, err
	}

	m, err := s.repomanager.Messages(s.db).UpdateText(ctx, id, senderID, text)
	if err != nil {
		return nil, err
	}
	s.push(ctx, realtime.EventMessageEdited, m, m)
	return m, nil
}

func (s *MessageService) Delete(ctx context.Context, senderID, id string) error {
	m, err := s.own(ctx, senderID, id)
	if err != nil {
		return err
	}

	if err := s.repomanager.Messages(s.db).Delete(ctx, id, senderID); err != nil {
		return err
	}
	s.push(ctx, realtime.EventMessageDeleted, m, map[string]string{"id": m.ID})
	return nil
}

// MarkRead marks everything otherID sent to userID as read and sends a read
// receipt to otherID.
func (s *MessageService) MarkRead(ctx context.Context, userID, otherID string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	if strings.TrimSpace(otherID) == "" || otherID == userID {
		return 0, validationError("counterpart id is required")
	}

	n, err := s.repomanager.Messages(s.db).MarkRead(ctx, userID, otherID)
	if err != nil {
		return 0, err
	}

	if n > 0 && s.pusher != nil {
		ev := realtime.Event{Type: realtime.EventRead, From: userID, To: otherID, Payload: map[string]int64{"count": n}}
		if err := s.pusher.SendToUsers(ctx, ev, otherID); err != nil {
			s.logger.Warn(ctx, "realtime push failed", "type", realtime.EventRead, "error", err)
		}
	}
	return n, nil
}

// HandleFrame serves frames arriving on a user's socket. Typing markers are
// relayed only when no block exists and are never stored.
func (s *MessageService) HandleFrame(ctx context.Context, userID string, f realtime.Frame) {
	if f.To == "" || f.To == userID {
		return
	}

	switch f.Type {
	case realtime.EventTyping:
		status, err := s.blocked(ctx, userID, f.To)
		if err != nil {
			s.logger.Warn(ctx, "block lookup failed", "error", err)
			return
		}
		if status.Any() || s.pusher == nil {
			return
		}
		ev := realtime.Event{Type: realtime.EventTyping, From: userID, To: f.To}
		if err := s.pusher.SendToUsers(ctx, ev, f.To); err != nil {
			s.logger.Warn(ctx, "realtime push failed", "type", realtime.EventTyping, "error", err)
		}
	case realtime.EventRead:
		if _, err := s.MarkRead(ctx, userID, f.To); err != nil {
			s.logger.Warn(ctx, "mark read failed", "error", err)
		}
	default:
		s.logger.Debug(ctx, "unknown frame type", "type", f.Type)
	}
}
