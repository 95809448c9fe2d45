// Package audit keeps a hash-chained, append-only trail of banking events.
// Payloads are canonicalized with RFC 8785 (JCS) before hashing, so two
// trails built from the same events always agree on every link.
package audit

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

// EventType labels what happened.
type EventType string

const (
	EventAccountCreated  EventType = "ACCOUNT_CREATED"
	EventDeposit         EventType = "DEPOSIT"
	EventWithdrawal      EventType = "WITHDRAWAL"
	EventTransferPosted  EventType = "TRANSFER_POSTED"
	EventNicknameUpdated EventType = "NICKNAME_UPDATED"
	EventDataExport      EventType = "DATA_EXPORT"
	EventBatchRun        EventType = "BATCH_RUN"
)

var (
	ErrValidation = fmt.Errorf("audit: validation error")
	ErrChainBreak = fmt.Errorf("audit: hash chain broken")
)

// Event is one committed trail entry. PrevHash of the first event is empty.
type Event struct {
	Seq              int64           `json:"seq"`
	EventID          uuid.UUID       `json:"event_id"`
	Timestamp        time.Time       `json:"timestamp"`
	Type             EventType       `json:"event_type"`
	AggregateType    string          `json:"aggregate_type"`
	AggregateID      string          `json:"aggregate_id"`
	CorrelationID    string          `json:"correlation_id"`
	Payload          json.RawMessage `json:"payload"`
	PayloadCanonical string          `json:"payload_canonical"`
	PrevHash         string          `json:"prev_hash"`
	Hash             string          `json:"hash"`
}

// Trail is an in-memory audit log safe for concurrent use. Events are
// appended with a contiguous sequence and chained by sha256.
type Trail struct {
	mu     sync.Mutex
	events []Event
	head   string
}

func NewTrail() *Trail { return &Trail{} }

// Record appends one event. All identifying fields are required; the
// payload may be any JSON-marshalable value.
func (t *Trail) Record(typ EventType, aggregateType, aggregateID, correlationID string, payload any) (Event, error) {
	if strings.TrimSpace(string(typ)) == "" ||
		strings.TrimSpace(aggregateType) == "" ||
		strings.TrimSpace(aggregateID) == "" ||
		strings.TrimSpace(correlationID) == "" {
		return Event{}, ErrValidation
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return Event{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ev := Event{
		Seq:              int64(len(t.events)) + 1,
		EventID:          uuid.New(),
		Timestamp:        time.Now(),
		Type:             typ,
		AggregateType:    aggregateType,
		AggregateID:      aggregateID,
		CorrelationID:    correlationID,
		Payload:          json.RawMessage(raw),
		PayloadCanonical: string(canonical),
		PrevHash:         t.head,
	}
	ev.Hash = linkHash(ev)

	t.events = append(t.events, ev)
	t.head = ev.Hash
	return ev, nil
}

func linkHash(ev Event) string {
	sum := sha256.Sum256([]byte(
		ev.PrevHash + "|" +
			strconv.FormatInt(ev.Seq, 10) + "|" +
			string(ev.Type) + "|" +
			ev.AggregateID + "|" +
			ev.PayloadCanonical,
	))
	return hex.EncodeToString(sum[:])
}

// Query narrows Events. Zero-value fields impose no constraint.
type Query struct {
	Type          EventType
	AggregateID   string
	CorrelationID string
	Since         time.Time
	Until         time.Time
	Limit         int
}

// Events returns matching events in append order.
func (t *Trail) Events(q Query) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Event
	for _, ev := range t.events {
		if q.Type != "" && ev.Type != q.Type {
			continue
		}
		if q.AggregateID != "" && ev.AggregateID != q.AggregateID {
			continue
		}
		if q.CorrelationID != "" && ev.CorrelationID != q.CorrelationID {
			continue
		}
		if !q.Since.IsZero() && ev.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && ev.Timestamp.After(q.Until) {
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Head is the hash of the newest event, empty for an empty trail.
func (t *Trail) Head() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.head
}

// CountByType tallies events per type.
func (t *Trail) CountByType() map[EventType]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[EventType]int, 8)
	for _, ev := range t.events {
		out[ev.Type]++
	}
	return out
}

// Verify recomputes every link and reports the first break.
func (t *Trail) Verify() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := ""
	for i, ev := range t.events {
		if ev.Seq != int64(i)+1 {
			return fmt.Errorf("%w: seq gap at position %d", ErrChainBreak, i)
		}
		if ev.PrevHash != prev {
			return fmt.Errorf("%w: prev hash mismatch at seq %d", ErrChainBreak, ev.Seq)
		}
		if linkHash(ev) != ev.Hash {
			return fmt.Errorf("%w: hash mismatch at seq %d", ErrChainBreak, ev.Seq)
		}
		prev = ev.Hash
	}
	return nil
}

// ExportProof renders the chain as CSV (seq, prev_hash_hex, hash_hex) for
// offline verification, plus the expected head hash.
func (t *Trail) ExportProof() (csvDoc, head string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"seq", "prev_hash_hex", "hash_hex"}); err != nil {
		return "", "", err
	}
	for _, ev := range t.events {
		if err := w.Write([]string{strconv.FormatInt(ev.Seq, 10), ev.PrevHash, ev.Hash}); err != nil {
			return "", "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", err
	}
	return b.String(), t.head, nil
}
