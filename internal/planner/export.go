package planner

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/novaplanner/nova/internal/models"
)

// ErrImportUnsupported is returned by Import once the payload has been decoded.
var ErrImportUnsupported = errors.New("import is not supported yet")

// Export is the document written by `nova export`.
type Export struct {
	Goals   []models.Goal   `json:"goals"`
	Folders []models.Folder `json:"folders"`
}

// Export serializes the current goals and folders as indented JSON.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	doc := Export{
		Goals:   cloneGoals(s.goals),
		Folders: cloneFolders(s.folders),
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// DecodeExport parses an export document. Missing collections decode as empty.
func DecodeExport(data []byte) (Export, error) {
	var doc Export
	if err := json.Unmarshal(data, &doc); err != nil {
		return Export{}, fmt.Errorf("failed to decode export: %w", err)
	}
	if doc.Goals == nil {
		doc.Goals = []models.Goal{}
	}
	if doc.Folders == nil {
		doc.Folders = []models.Folder{}
	}
	return doc, nil
}

// Import decodes data but does not apply it. The decoded document is returned
// alongside ErrImportUnsupported so callers can report what would be imported.
func (s *Store) Import(data []byte) (Export, error) {
	doc, err := DecodeExport(data)
	if err != nil {
		return Export{}, err
	}
	s.log.Debug("Import requested", "goals", len(doc.Goals), "folders", len(doc.Folders))
	return doc, ErrImportUnsupported
}
