package planner

import (
	"fmt"

	"github.com/novaplanner/nova/internal/models"
)

// AddCollaborator adds c to the folder, replacing any entry with the same user
// id. Nothing here checks whether the caller may share the folder.
func (s *Store) AddCollaborator(folderID string, c models.Collaborator) (bool, error) {
	if c.UserID == "" {
		return false, fmt.Errorf("collaborator user id cannot be empty")
	}
	if c.Role == "" {
		c.Role = models.RoleViewer
	}
	if c.JoinedAt.IsZero() {
		c.JoinedAt = s.now()
	}
	return s.modifyFolder(folderID, func(f models.Folder) (models.Folder, bool) {
		return f.WithCollaborator(c), true
	})
}

// RemoveCollaborator drops the user from the folder's collaborator list.
// It returns false when the folder or the member is unknown.
func (s *Store) RemoveCollaborator(folderID, userID string) (bool, error) {
	return s.modifyFolder(folderID, func(f models.Folder) (models.Folder, bool) {
		if _, member := f.Collaborator(userID); !member {
			return f, false
		}
		return f.WithoutCollaborator(userID), true
	})
}

// SetCollaborationSettings stores new toggles on the folder.
func (s *Store) SetCollaborationSettings(folderID string, settings models.CollaborationSettings) (bool, error) {
	return s.modifyFolder(folderID, func(f models.Folder) (models.Folder, bool) {
		f.CollaborationSettings = &settings
		return f, true
	})
}

// modifyFolder applies fn to the current folder and stores the result as an
// update, all under one lock.
func (s *Store) modifyFolder(id string, fn func(models.Folder) (models.Folder, bool)) (bool, error) {
	s.mu.Lock()
	i := s.folderIndex(id)
	if i < 0 || s.closed {
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return false, ErrClosed
		}
		return false, nil
	}

	f, changed := fn(s.folders[i].Clone())
	if !changed {
		s.mu.Unlock()
		return false, nil
	}
	ok, err := s.updateFolderLocked(f)
	if !ok {
		s.mu.Unlock()
		return false, err
	}
	s.publishLocked(CauseMutation)
	return true, err
}
