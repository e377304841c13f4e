package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/cache"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/transfer"
)

// LedgerTTL bounds how long an abandoned ledger survives
const LedgerTTL = 24 * time.Hour

// Entry is one queued or running download
type Entry struct {
	Identifier string             `json:"identifier"`
	JobID      string             `json:"job_id"`
	State      models.JobState    `json:"state"`
	Type       models.JobType     `json:"type"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Progress   *transfer.Progress `json:"progress,omitempty"`
}

// Snapshot summarises the ledger for queue_status events and /status
type Snapshot struct {
	Total   int     `json:"total"`
	Pending int     `json:"pending"`
	Started int     `json:"started"`
	Entries []Entry `json:"entries"`
}

// Ledger is the authoritative view of queued downloads, keyed by identifier
type Ledger struct {
	store cache.Store
	now   func() time.Time
}

// NewLedger creates a ledger on store
func NewLedger(store cache.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Add records a pending job for identifier
func (l *Ledger) Add(ctx context.Context, identifier, jobID string, jobType models.JobType) error {
	now := l.now().UTC()
	return l.put(ctx, &Entry{
		Identifier: identifier,
		JobID:      jobID,
		State:      models.JobPending,
		Type:       jobType,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// MarkStarted flips identifier to started, creating the entry if needed
func (l *Ledger) MarkStarted(ctx context.Context, identifier, jobID string) error {
	entry, ok, err := l.Get(ctx, identifier)
	if err != nil {
		return err
	}
	if !ok {
		entry = &Entry{Identifier: identifier, Type: models.JobTypeDownload, CreatedAt: l.now().UTC()}
	}
	entry.JobID = jobID
	entry.State = models.JobStarted
	entry.UpdatedAt = l.now().UTC()
	return l.put(ctx, entry)
}

// SetProgress attaches the latest progress to a running entry. Missing
// entries are left alone.
func (l *Ledger) SetProgress(ctx context.Context, identifier string, p transfer.Progress) error {
	entry, ok, err := l.Get(ctx, identifier)
	if err != nil || !ok {
		return err
	}
	entry.Progress = &p
	entry.UpdatedAt = l.now().UTC()
	return l.put(ctx, entry)
}

// Remove drops identifier from the ledger
func (l *Ledger) Remove(ctx context.Context, identifier string) error {
	if err := l.store.HDel(ctx, cache.QueueKey, identifier); err != nil {
		return fmt.Errorf("failed to remove %s from ledger: %w", identifier, err)
	}
	return nil
}

// Get returns the entry of identifier
func (l *Ledger) Get(ctx context.Context, identifier string) (*Entry, bool, error) {
	raw, ok, err := l.store.HGet(ctx, cache.QueueKey, identifier)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read ledger: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("corrupt ledger entry %s: %w", identifier, err)
	}
	entry.Identifier = identifier
	return &entry, true, nil
}

// List returns every entry, oldest first. Corrupt entries are skipped.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	all, err := l.store.HGetAll(ctx, cache.QueueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	entries := make([]Entry, 0, len(all))
	for id, raw := range all {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		entry.Identifier = id
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Identifier < entries[j].Identifier
	})
	return entries, nil
}

// Snapshot counts the ledger by state
func (l *Ledger) Snapshot(ctx context.Context) (*Snapshot, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Total: len(entries), Entries: entries}
	for _, e := range entries {
		switch e.State {
		case models.JobPending:
			snap.Pending++
		case models.JobStarted:
			snap.Started++
		}
	}
	return snap, nil
}

func (l *Ledger) put(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	if err := l.store.HSet(ctx, cache.QueueKey, entry.Identifier, string(data), LedgerTTL); err != nil {
		return fmt.Errorf("failed to write ledger entry %s: %w", entry.Identifier, err)
	}
	return nil
}
