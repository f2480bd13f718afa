package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/storage"
)

func fullGoal() models.Goal {
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	return models.Goal{
		ID:                "full",
		Wish:              "Learn Go",
		Outcome:           "Ship a tool",
		Obstacle:          "Time",
		Plan:              "If it is 7am, then code for an hour",
		IsRecurring:       true,
		RecurringDays:     []int{0, 2, 4},
		Deadline:          models.TimePtr(ts.AddDate(0, 1, 0)),
		Completed:         true,
		LastCompletedDate: models.TimePtr(ts),
		Streak:            9,
		FolderID:          models.StringPtr("f1"),
		OwnerID:           models.StringPtr("u1"),
		Category:          models.StringPtr("learning"),
		LastModified:      models.TimePtr(ts),
		LastModifiedBy:    models.StringPtr("u2"),
		Version:           12,
		Collaborators: []models.Collaborator{{
			UserID:      "u2",
			Email:       "u2@example.com",
			DisplayName: models.StringPtr("Two"),
			PhotoURL:    models.StringPtr("https://example.com/u2.png"),
			Role:        models.RoleEditor,
			JoinedAt:    ts,
		}},
		IsShared: models.BoolPtr(true),
	}
}

func fullFolder() models.Folder {
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	settings := models.DefaultCollaborationSettings()
	return models.Folder{
		ID:                    "f1",
		Name:                  "Growth",
		OwnerID:               "u1",
		CreatedAt:             ts,
		UpdatedAt:             ts.Add(time.Hour),
		Collaborators:         []models.Collaborator{{UserID: "u2", Email: "u2@example.com", Role: models.RoleViewer, JoinedAt: ts}},
		OwnerEmail:            models.StringPtr("u1@example.com"),
		Color:                 models.StringPtr("#33AAFF"),
		IsShared:              models.BoolPtr(true),
		CollaborationSettings: &settings,
	}
}

func TestExportRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		goals   []models.Goal
		folders []models.Folder
	}{
		{name: "empty"},
		{name: "all optionals absent", goals: []models.Goal{{ID: "bare", Wish: "bare"}}, folders: []models.Folder{{ID: "f", Name: "f"}}},
		{name: "all optionals present", goals: []models.Goal{fullGoal()}, folders: []models.Folder{fullFolder()}},
		{
			name:    "empty lists",
			goals:   []models.Goal{{ID: "e", Wish: "e", RecurringDays: []int{}, Collaborators: []models.Collaborator{}}},
			folders: []models.Folder{{ID: "ef", Name: "ef", Collaborators: []models.Collaborator{}}},
		},
		{name: "mixed", goals: []models.Goal{fullGoal(), {ID: "bare", Wish: "bare", RecurringDays: []int{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, WithUserID("u1"))
			for _, f := range tt.folders {
				_, err := s.AddFolder(f)
				require.NoError(t, err)
			}
			for _, g := range tt.goals {
				_, err := s.AddGoal(g)
				require.NoError(t, err)
			}

			data, err := s.Export()
			require.NoError(t, err)

			doc, err := DecodeExport(data)
			require.NoError(t, err)
			assert.Equal(t, s.Goals(), doc.Goals)
			assert.Equal(t, s.Folders(), doc.Folders)
		})
	}
}

func TestExportKeepsEmptyCollaboratorList(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddGoal(models.Goal{ID: "g", Wish: "w", Collaborators: []models.Collaborator{}})
	require.NoError(t, err)
	_, err = s.AddFolder(models.Folder{ID: "f", Name: "n", Collaborators: []models.Collaborator{}})
	require.NoError(t, err)

	data, err := s.Export()
	require.NoError(t, err)
	doc, err := DecodeExport(data)
	require.NoError(t, err)

	require.Len(t, doc.Goals, 1)
	assert.NotNil(t, doc.Goals[0].Collaborators)
	assert.Empty(t, doc.Goals[0].Collaborators)
	require.Len(t, doc.Folders, 1)
	assert.NotNil(t, doc.Folders[0].Collaborators)
	assert.Empty(t, doc.Folders[0].Collaborators)
}

func TestExportShape(t *testing.T) {
	s := New(storage.NewMemory())
	s.Load()
	defer s.Close()

	data, err := s.Export()
	require.NoError(t, err)
	assert.JSONEq(t, `{"goals":[],"folders":[]}`, string(data))
}

func TestDecodeExportErrors(t *testing.T) {
	_, err := DecodeExport([]byte(`{"goals": 5}`))
	assert.Error(t, err)

	doc, err := DecodeExport([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Goals)
	assert.NotNil(t, doc.Folders)
}

func TestImportIsStub(t *testing.T) {
	s, _ := newTestStore(t)

	doc, err := s.Import([]byte(`{"goals":[{"id":"x","wish":"w"}],"folders":[]}`))
	assert.ErrorIs(t, err, ErrImportUnsupported)
	assert.Len(t, doc.Goals, 1)
	assert.Empty(t, s.Goals(), "import must not apply anything")

	_, err = s.Import([]byte(`nope`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrImportUnsupported)
}
