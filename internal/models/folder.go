package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole maps user input onto a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleEditor:
		return RoleEditor, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("invalid role: %s (expected owner, editor or viewer)", s)
	}
}

// Collaborator is a member of a shared folder. Identity is by UserID.
type Collaborator struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName,omitempty"`
	PhotoURL    *string   `json:"photoUrl,omitempty"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func (c Collaborator) Clone() Collaborator {
	out := c
	out.DisplayName = cloneString(c.DisplayName)
	out.PhotoURL = cloneString(c.PhotoURL)
	return out
}

// CollaborationSettings are per-folder toggles. They are stored and synced but
// nothing in the client enforces them.
type CollaborationSettings struct {
	IsEnabled         bool `json:"isEnabled"`
	ShowPresence      bool `json:"showPresence"`
	ShowEditingState  bool `json:"showEditingState"`
	ConflictDetection bool `json:"conflictDetection"`
	AllowGuestView    bool `json:"allowGuestView"`
	RequireApproval   bool `json:"requireApproval"`
}

// DefaultCollaborationSettings returns the settings a folder gets when sharing is
// first configured. Collaboration itself stays off until explicitly enabled.
func DefaultCollaborationSettings() CollaborationSettings {
	return CollaborationSettings{
		IsEnabled:         false,
		ShowPresence:      true,
		ShowEditingState:  true,
		ConflictDetection: true,
		AllowGuestView:    false,
		RequireApproval:   true,
	}
}

// Folder groups goals and carries the collaboration metadata for sharing them.
type Folder struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	OwnerID               string                 `json:"ownerId"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
	Collaborators         []Collaborator         `json:"collaborators"`
	OwnerEmail            *string                `json:"ownerEmail,omitempty"`
	Color                 *string                `json:"color,omitempty"`
	IsShared              *bool                  `json:"isShared,omitempty"`
	CollaborationSettings *CollaborationSettings `json:"collaborationSettings,omitempty"`
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func (f Folder) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("folder id cannot be empty")
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("folder name cannot be empty")
	}
	if f.Color != nil && !colorPattern.MatchString(*f.Color) {
		return fmt.Errorf("invalid folder color %q (expected #RRGGBB)", *f.Color)
	}
	seen := make(map[string]bool, len(f.Collaborators))
	for _, c := range f.Collaborators {
		if c.UserID == "" {
			return fmt.Errorf("collaborator user id cannot be empty")
		}
		if seen[c.UserID] {
			return fmt.Errorf("collaborator %s listed more than once", c.UserID)
		}
		seen[c.UserID] = true
	}
	return nil
}

func (f Folder) Clone() Folder {
	c := f
	if f.Collaborators != nil {
		c.Collaborators = make([]Collaborator, len(f.Collaborators))
		for i, col := range f.Collaborators {
			c.Collaborators[i] = col.Clone()
		}
	}
	c.OwnerEmail = cloneString(f.OwnerEmail)
	c.Color = cloneString(f.Color)
	c.IsShared = cloneBool(f.IsShared)
	if f.CollaborationSettings != nil {
		s := *f.CollaborationSettings
		c.CollaborationSettings = &s
	}
	return c
}

// Collaborator returns the member with the given user id.
func (f Folder) Collaborator(userID string) (Collaborator, bool) {
	for _, c := range f.Collaborators {
		if c.UserID == userID {
			return c, true
		}
	}
	return Collaborator{}, false
}

// WithCollaborator returns a copy of f with c added, replacing any existing entry
// for the same user id.
func (f Folder) WithCollaborator(c Collaborator) Folder {
	out := f.Clone()
	for i, existing := range out.Collaborators {
		if existing.UserID == c.UserID {
			out.Collaborators[i] = c.Clone()
			out.IsShared = BoolPtr(out.hasGuests())
			return out
		}
	}
	out.Collaborators = append(out.Collaborators, c.Clone())
	out.IsShared = BoolPtr(out.hasGuests())
	return out
}

// WithoutCollaborator returns a copy of f with the given user removed.
func (f Folder) WithoutCollaborator(userID string) Folder {
	out := f.Clone()
	kept := out.Collaborators[:0]
	for _, c := range out.Collaborators {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	out.Collaborators = kept
	if len(out.Collaborators) == 0 {
		out.Collaborators = nil
	}
	out.IsShared = BoolPtr(out.hasGuests())
	return out
}

// Settings returns the folder's collaboration settings, or the defaults when none
// have been stored.
func (f Folder) Settings() CollaborationSettings {
	if f.CollaborationSettings == nil {
		return DefaultCollaborationSettings()
	}
	return *f.CollaborationSettings
}

func (f Folder) hasGuests() bool {
	for _, c := range f.Collaborators {
		if c.UserID != f.OwnerID && c.Role != RoleOwner {
			return true
		}
	}
	return false
}
