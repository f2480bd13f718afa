// Package planner holds the authoritative in-memory goal and folder lists.
//
// Every mutation stamps metadata, saves the affected collection to the local
// snapshot cache synchronously, and pushes the changed document to the remote
// store without waiting for it. Remote listeners deliver whole collections,
// which replace the in-memory lists outright.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/logger"
	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/remote"
	"github.com/novaplanner/nova/internal/storage"
)

var (
	ErrOffline     = errors.New("no remote configured or no user signed in")
	ErrClosed      = errors.New("planner store closed")
	ErrDuplicateID = errors.New("an entry with this id already exists")
)

// pushTimeout bounds a single remote write.
const pushTimeout = 30 * time.Second

// Cause tells observers what produced a snapshot.
type Cause int

const (
	CauseLoad Cause = iota
	CauseMutation
	CauseRemote
	CauseRemoteError
)

func (c Cause) String() string {
	switch c {
	case CauseLoad:
		return "load"
	case CauseMutation:
		return "mutation"
	case CauseRemote:
		return "remote"
	case CauseRemoteError:
		return "remote-error"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the store state handed to observers.
type Snapshot struct {
	Goals   []models.Goal
	Folders []models.Folder
	Cause   Cause
	Err     error

	// Collection names the remote collection a CauseRemote snapshot came from.
	Collection string
}

// Option configures a Store.
type Option func(*Store)

func WithRemote(r remote.DocumentStore) Option {
	return func(s *Store) { s.remote = r }
}

func WithUserID(id string) Option {
	return func(s *Store) { s.userID = id }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

type Store struct {
	mu      sync.Mutex
	local   storage.Provider
	remote  remote.DocumentStore
	userID  string
	now     func() time.Time
	log     *log.Logger
	goals   []models.Goal
	folders []models.Folder
	lastErr error
	closed  bool

	subs       []remote.Subscription
	generation int

	// notifyMu keeps observer deliveries in the order the state changed.
	notifyMu  sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int

	pushes sync.WaitGroup
}

func New(local storage.Provider, opts ...Option) *Store {
	s := &Store{
		local:     local,
		now:       time.Now,
		goals:     []models.Goal{},
		folders:   []models.Folder{},
		observers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.With("planner")
	}
	return s
}

// Online reports whether mutations are pushed to a remote.
func (s *Store) Online() bool {
	return s.remote != nil && s.userID != ""
}

// Load replaces the in-memory lists with the local snapshots. Missing or
// unreadable snapshots load as empty lists.
func (s *Store) Load() {
	s.mu.Lock()
	s.goals = storage.Load[models.Goal](s.local, constants.GoalsKey)
	s.folders = storage.Load[models.Folder](s.local, constants.FoldersKey)
	s.log.Debug("Loaded local snapshot", "goals", len(s.goals), "folders", len(s.folders))
	s.publishLocked(CauseLoad)
}

// Subscribe registers fn for every subsequent state change and returns a func
// that removes it. fn runs on the goroutine that changed the state and must not
// call back into the Store; everything it needs is in the Snapshot.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.notifyMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.observers, id)
			s.notifyMu.Unlock()
		})
	}
}

// publishLocked snapshots state under s.mu, releases it, then notifies
// observers in order.
func (s *Store) publishLocked(cause Cause) {
	s.publishFromLocked(cause, "")
}

func (s *Store) publishFromLocked(cause Cause, collection string) {
	snap := Snapshot{
		Goals:      cloneGoals(s.goals),
		Folders:    cloneFolders(s.folders),
		Cause:      cause,
		Err:        s.lastErr,
		Collection: collection,
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range s.observers {
		fn(snap)
	}
}

// LastError returns the most recent listener error, cleared by the next
// successful remote delivery.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) Goals() []models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneGoals(s.goals)
}

func (s *Store) Folders() []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFolders(s.folders)
}

func (s *Store) Goal(id string) (models.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.goalIndex(id); i >= 0 {
		return s.goals[i].Clone(), true
	}
	return models.Goal{}, false
}

func (s *Store) Folder(id string) (models.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.folderIndex(id); i >= 0 {
		return s.folders[i].Clone(), true
	}
	return models.Folder{}, false
}

// FilteredGoals projects the current goals through opts.
func (s *Store) FilteredGoals(opts FilterOptions) []models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterGoals(s.goals, opts)
}

func (s *Store) goalIndex(id string) int {
	for i := range s.goals {
		if s.goals[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) folderIndex(id string) int {
	for i := range s.folders {
		if s.folders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) modifiedBy() *string {
	return models.StringPtr(s.userID)
}

// AddGoal stamps and appends g. An empty id gets a fresh UUID. The returned goal
// is what was stored. The in-memory list keeps the goal even if the local save
// fails; the error reports that failure.
func (s *Store) AddGoal(g models.Goal) (models.Goal, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Goal{}, ErrClosed
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if s.goalIndex(g.ID) >= 0 {
		s.mu.Unlock()
		return models.Goal{}, fmt.Errorf("goal %s: %w", g.ID, ErrDuplicateID)
	}

	g = g.Clone()
	g.LastModified = models.TimePtr(s.now())
	g.LastModifiedBy = s.modifiedBy()
	if g.Version < 1 {
		g.Version = 1
	}
	if g.OwnerID == nil {
		g.OwnerID = s.modifiedBy()
	}

	goals := append(cloneGoals(s.goals), g)
	s.goals = goals
	err := s.saveGoalsLocked()
	s.pushGoalLocked(g)
	s.publishLocked(CauseMutation)
	return g.Clone(), err
}

// UpdateGoal replaces the stored goal with the same id, stamping it and bumping
// its version. An unknown id is a no-op and returns false.
func (s *Store) UpdateGoal(g models.Goal) (bool, error) {
	s.mu.Lock()
	_, ok, err := s.updateGoalLocked(g)
	if !ok {
		s.mu.Unlock()
		return false, err
	}
	s.publishLocked(CauseMutation)
	return true, err
}

func (s *Store) updateGoalLocked(g models.Goal) (models.Goal, bool, error) {
	if s.closed {
		return models.Goal{}, false, ErrClosed
	}
	i := s.goalIndex(g.ID)
	if i < 0 {
		s.log.Debug("Ignoring update of unknown goal", "id", g.ID)
		return models.Goal{}, false, nil
	}

	g = g.Clone()
	g.LastModified = models.TimePtr(s.now())
	g.LastModifiedBy = s.modifiedBy()
	g.Version = s.goals[i].Version + 1

	goals := cloneGoals(s.goals)
	goals[i] = g
	s.goals = goals
	err := s.saveGoalsLocked()
	s.pushGoalLocked(g)
	return g, true, err
}

// DeleteGoal removes the goal with id locally and remotely. The id need not exist.
func (s *Store) DeleteGoal(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	goals := make([]models.Goal, 0, len(s.goals))
	for _, g := range s.goals {
		if g.ID != id {
			goals = append(goals, g.Clone())
		}
	}
	s.goals = goals
	err := s.saveGoalsLocked()
	s.pushDeleteLocked(remote.GoalsPath(s.userID), id)
	s.publishLocked(CauseMutation)
	return err
}

// ToggleGoalCompletion flips completion of the goal with id. Completing stamps
// lastCompletedDate and increments the streak; un-completing leaves both alone.
func (s *Store) ToggleGoalCompletion(id string) (models.Goal, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Goal{}, false, ErrClosed
	}
	i := s.goalIndex(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.Debug("Ignoring toggle of unknown goal", "id", id)
		return models.Goal{}, false, nil
	}

	g := s.goals[i].Clone()
	g.Completed = !g.Completed
	if g.Completed {
		g.LastCompletedDate = models.TimePtr(s.now())
		g.Streak++
	}

	updated, _, err := s.updateGoalLocked(g)
	s.publishLocked(CauseMutation)
	return updated.Clone(), true, err
}

// AddFolder stamps and appends f. An empty id gets a fresh UUID.
func (s *Store) AddFolder(f models.Folder) (models.Folder, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Folder{}, ErrClosed
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if s.folderIndex(f.ID) >= 0 {
		s.mu.Unlock()
		return models.Folder{}, fmt.Errorf("folder %s: %w", f.ID, ErrDuplicateID)
	}

	f = f.Clone()
	now := s.now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	if f.OwnerID == "" {
		f.OwnerID = s.userID
	}

	s.folders = append(cloneFolders(s.folders), f)
	err := s.saveFoldersLocked()
	s.pushFolderLocked(f)
	s.publishLocked(CauseMutation)
	return f.Clone(), err
}

// UpdateFolder replaces the stored folder with the same id and stamps updatedAt.
// An unknown id is a no-op and returns false.
func (s *Store) UpdateFolder(f models.Folder) (bool, error) {
	s.mu.Lock()
	ok, err := s.updateFolderLocked(f)
	if !ok {
		s.mu.Unlock()
		return false, err
	}
	s.publishLocked(CauseMutation)
	return true, err
}

func (s *Store) updateFolderLocked(f models.Folder) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	i := s.folderIndex(f.ID)
	if i < 0 {
		s.log.Debug("Ignoring update of unknown folder", "id", f.ID)
		return false, nil
	}

	f = f.Clone()
	f.UpdatedAt = s.now()

	folders := cloneFolders(s.folders)
	folders[i] = f
	s.folders = folders
	err := s.saveFoldersLocked()
	s.pushFolderLocked(f)
	return true, err
}

// DeleteFolder removes the folder and clears folderId on every goal that
// referenced it. Those goals are re-stamped and pushed like any other update.
func (s *Store) DeleteFolder(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	var errs []error
	now := s.now()
	goals := cloneGoals(s.goals)
	var moved []models.Goal
	for i := range goals {
		if !goals[i].InFolder(id) {
			continue
		}
		goals[i].FolderID = nil
		goals[i].LastModified = models.TimePtr(now)
		goals[i].LastModifiedBy = s.modifiedBy()
		goals[i].Version++
		moved = append(moved, goals[i])
	}
	if len(moved) > 0 {
		s.goals = goals
		if err := s.saveGoalsLocked(); err != nil {
			errs = append(errs, err)
		}
		for _, g := range moved {
			s.pushGoalLocked(g)
		}
	}

	folders := make([]models.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		if f.ID != id {
			folders = append(folders, f.Clone())
		}
	}
	s.folders = folders
	if err := s.saveFoldersLocked(); err != nil {
		errs = append(errs, err)
	}
	s.pushDeleteLocked(remote.FoldersPath(s.userID), id)
	s.publishLocked(CauseMutation)
	return errors.Join(errs...)
}

func (s *Store) saveGoalsLocked() error {
	if err := storage.Save(s.local, constants.GoalsKey, s.goals); err != nil {
		s.log.Error("Failed to save goals locally", "error", err)
		return err
	}
	return nil
}

func (s *Store) saveFoldersLocked() error {
	if err := storage.Save(s.local, constants.FoldersKey, s.folders); err != nil {
		s.log.Error("Failed to save folders locally", "error", err)
		return err
	}
	return nil
}

func (s *Store) pushGoalLocked(g models.Goal) {
	s.pushLocked(remote.GoalsPath(s.userID), g.ID, g)
}

func (s *Store) pushFolderLocked(f models.Folder) {
	s.pushLocked(remote.FoldersPath(s.userID), f.ID, f)
}

// pushLocked writes doc in the background. Failures are logged and dropped.
func (s *Store) pushLocked(path, id string, doc any) {
	if !s.Online() || s.closed {
		return
	}
	r := s.remote
	l := s.log
	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := r.Upsert(ctx, path, id, doc); err != nil {
			l.Warn("Remote write failed", "path", path, "id", id, "error", err)
		}
	}()
}

func (s *Store) pushDeleteLocked(path, id string) {
	if !s.Online() || s.closed {
		return
	}
	r := s.remote
	l := s.log
	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := r.Delete(ctx, path, id); err != nil {
			l.Warn("Remote delete failed", "path", path, "id", id, "error", err)
		}
	}()
}

// Flush blocks until every push issued so far has finished.
func (s *Store) Flush() {
	s.pushes.Wait()
}

// Attach opens the goals and folders listeners for the signed-in user. Each
// delivery replaces the matching list and is saved locally.
func (s *Store) Attach(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.Online() {
		s.mu.Unlock()
		return ErrOffline
	}
	if len(s.subs) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	goalsSub, err := s.remote.Subscribe(ctx, remote.GoalsPath(s.userID), func(docs []json.RawMessage) {
		s.applyGoals(gen, remote.DecodeDocs[models.Goal](docs, s.log))
	}, func(err error) {
		s.recordListenerError(gen, err)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to goals: %w", err)
	}

	foldersSub, err := s.remote.Subscribe(ctx, remote.FoldersPath(s.userID), func(docs []json.RawMessage) {
		s.applyFolders(gen, remote.DecodeDocs[models.Folder](docs, s.log))
	}, func(err error) {
		s.recordListenerError(gen, err)
	})
	if err != nil {
		goalsSub.Cancel()
		return fmt.Errorf("failed to subscribe to folders: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation || s.closed {
		// detached or re-attached while subscribing
		s.mu.Unlock()
		goalsSub.Cancel()
		foldersSub.Cancel()
		return nil
	}
	s.subs = []remote.Subscription{goalsSub, foldersSub}
	s.mu.Unlock()
	s.log.Info("Attached remote listeners", "user", s.userID)
	return nil
}

// Attached reports whether remote listeners are open.
func (s *Store) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

// Detach cancels the remote listeners. Once it returns no further remote
// snapshots are applied.
func (s *Store) Detach() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.generation++
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// Close detaches, waits for in-flight pushes, and rejects later mutations.
func (s *Store) Close() {
	s.Detach()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pushes.Wait()
}

func (s *Store) applyGoals(gen int, goals []models.Goal) {
	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	s.goals = goals
	s.lastErr = nil
	_ = s.saveGoalsLocked()
	s.publishFromLocked(CauseRemote, constants.GoalsCollection)
}

func (s *Store) applyFolders(gen int, folders []models.Folder) {
	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	s.folders = folders
	s.lastErr = nil
	_ = s.saveFoldersLocked()
	s.publishFromLocked(CauseRemote, constants.FoldersCollection)
}

func (s *Store) recordListenerError(gen int, err error) {
	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	s.log.Error("Remote listener failed", "error", err)
	s.lastErr = err
	s.publishLocked(CauseRemoteError)
}

func cloneGoals(in []models.Goal) []models.Goal {
	out := make([]models.Goal, len(in))
	for i, g := range in {
		out[i] = g.Clone()
	}
	return out
}

func cloneFolders(in []models.Folder) []models.Folder {
	out := make([]models.Folder, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}
