//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_archive.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"guardian-chat/domain"
)

type IMessageArchive interface {
	Store(message ArchivedMessage) error
	Recent(room string, cursor *string) ([]ArchivedMessage, *string, error)
}

// ArchivedMessage is the persisted record of a classified message.
type ArchivedMessage struct {
	ID           string    `json:"id"`
	Room         string    `json:"room"`
	Author       string    `json:"author"`
	Text         string    `json:"text"`
	At           time.Time `json:"at"`
	RiskLevel    string    `json:"risk_level"`
	RiskScore    int       `json:"risk_score"`
	Explanations []string  `json:"explanations,omitempty"`
}

// FromMessage flattens a terminal message into its archive record.
func FromMessage(room domain.RoomID, m domain.Message) ArchivedMessage {
	return ArchivedMessage{
		ID:           m.ID,
		Room:         string(room),
		Author:       m.Author,
		Text:         m.Text,
		At:           m.At,
		RiskLevel:    string(m.Risk.Level),
		RiskScore:    m.Risk.Score,
		Explanations: m.Risk.Explanations,
	}
}

// MessageArchive persists classified messages in BadgerDB and mirrors them
// into the full-text index when one is attached.
type MessageArchive struct {
	db    *badger.DB
	index *SearchIndex
	log   *slog.Logger
	limit *int
}

func NewMessageArchive(db *badger.DB, index *SearchIndex, log *slog.Logger, limit *int) MessageArchive {
	return MessageArchive{db: db, index: index, log: log, limit: limit}
}

// Store persists a message record. The key is formatted as
// "msg:{room}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the message id as a collision
//     disconnector if two messages arrive at the same nanosecond.
func (m MessageArchive) Store(message ArchivedMessage) error {
	key := archiveKey(message)
	value, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return err
	}
	if m.index != nil {
		return m.index.Index(message)
	}
	return nil
}

func archiveKey(message ArchivedMessage) string {
	return fmt.Sprintf("msg:%s:%019d:%s",
		message.Room,
		message.At.UnixNano(),
		message.ID,
	)
}

// Recent retrieves a room's records newest first using a reverse prefix
// scan. Thanks to the padded timestamp in the key, records come back
// naturally sorted by time; the returned cursor resumes the scan on the
// next page.
func (m MessageArchive) Recent(room string, cursor *string) ([]ArchivedMessage, *string, error) {
	var values [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limit != nil && len(values) == *m.limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d records reached", *m.limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(value []byte) error {
				values = append(values, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]ArchivedMessage, 0, len(values))
	for _, raw := range values {
		var message ArchivedMessage
		if err := json.Unmarshal(raw, &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}
