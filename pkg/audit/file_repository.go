package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileAuditRepository implements AuditRepository using file-based storage
type FileAuditRepository struct {
	dataDir string
	entries []Entry
	mutex   sync.RWMutex
}

// auditData represents the structure of data stored in the JSON file
type auditData struct {
	Entries []Entry `json:"entries"`
}

// NewFileAuditRepository creates a new file-based audit repository
func NewFileAuditRepository(dataDir string) (*FileAuditRepository, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileAuditRepository{
		dataDir: dataDir,
	}

	// Load existing data
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// AppendEntry durably records an entry
func (r *FileAuditRepository) AppendEntry(ctx context.Context, entry Entry) (Entry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	r.entries = append(r.entries, entry)

	if err := r.save(); err != nil {
		r.entries = r.entries[:len(r.entries)-1]
		return Entry{}, fmt.Errorf("failed to save: %w", err)
	}

	return entry, nil
}

// FindEntries returns all recorded entries, newest first
func (r *FileAuditRepository) FindEntries(ctx context.Context) ([]Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// load reads entries from the JSON file
func (r *FileAuditRepository) load() error {
	filePath := filepath.Join(r.dataDir, "audit.json")

	// If file doesn't exist, start with no entries
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var aData auditData
	if err := json.Unmarshal(data, &aData); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.entries = aData.Entries
	return nil
}

// save writes entries to the JSON file atomically
func (r *FileAuditRepository) save() error {
	jsonData, err := json.MarshalIndent(auditData{Entries: r.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(r.dataDir, "audit.json.tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(r.dataDir, "audit.json")
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
