package repositories

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
)

// SearchHit is a single full-text match from the message index.
type SearchHit struct {
	ID     string    `json:"id"`
	Room   string    `json:"room"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// SearchIndex wraps a Bluge writer holding one document per archived
// message. Documents become visible to readers after Flush.
type SearchIndex struct {
	writer   *bluge.Writer
	log      *slog.Logger
	pageSize int
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger, pageSize int) *SearchIndex {
	return &SearchIndex{writer: writer, log: log, pageSize: pageSize}
}

func (s *SearchIndex) Index(message ArchivedMessage) error {
	doc := bluge.NewDocument(message.ID)
	doc.AddField(bluge.NewTextField("text", message.Text).StoreValue())
	doc.AddField(bluge.NewKeywordField("room", message.Room).StoreValue())
	doc.AddField(bluge.NewKeywordField("author", message.Author).StoreValue())
	doc.AddField(bluge.NewKeywordField("at", message.At.UTC().Format(time.RFC3339Nano)).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

// Flush forces segment introduction so freshly indexed documents become
// searchable. A no-op batch is enough to trigger it.
func (s *SearchIndex) Flush() error {
	batch := bluge.NewBatch()
	return s.writer.Batch(batch)
}

// Search runs a full-text query scoped to a single room, newest-ranked
// first, returning one page of hits plus the total match count.
func (s *SearchIndex) Search(ctx context.Context, query string, room string, offset int) ([]SearchHit, uint64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, nil
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = reader.Close()
	}()

	fullText := bluge.NewMatchQuery(query).SetField("text")
	sameRoom := bluge.NewTermQuery(room).SetField("room")
	request := bluge.NewTopNSearch(s.pageSize, bluge.NewBooleanQuery().AddMust(fullText, sameRoom)).
		SetFrom(offset).
		WithStandardAggregations()

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	var hits []SearchHit
	match, err := iterator.Next()
	for err == nil && match != nil {
		var hit SearchHit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "room":
				hit.Room = string(value)
			case "author":
				hit.Author = string(value)
			case "text":
				hit.Text = string(value)
			case "at":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, 0, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, err
	}
	return hits, iterator.Aggregations().Count(), nil
}
