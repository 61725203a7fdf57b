package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"filevault/internal/config"
	"filevault/internal/domain"
	"filevault/internal/domain/models"
	"filevault/internal/domain/repositories"
	"filevault/internal/domain/services"
	"filevault/internal/storage"
)

var nameNoSlash = regexp.MustCompile(`^[^/]+$`)

// Config holds the dependencies of the hierarchy service.
type Config struct {
	Entries   repositories.EntryRepository
	Files     storage.Backend
	Resolver  services.PathResolver
	Locks     *EntryLocks
	Retention time.Duration    // how long trashed entries live, default 30 days
	Clock     func() time.Time // injectable for deterministic expiry in tests
	Logger    *slog.Logger
}

type service struct {
	entries   repositories.EntryRepository
	files     storage.Backend
	resolver  services.PathResolver
	locks     *EntryLocks
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New creates the hierarchy service. The store is written before the
// filesystem on every mutation; a failed filesystem step triggers a
// compensating store rollback so the two never silently diverge.
func New(cfg Config) services.HierarchyService {
	s := &service{
		entries:   cfg.Entries,
		files:     cfg.Files,
		resolver:  cfg.Resolver,
		locks:     cfg.Locks,
		retention: cfg.Retention,
		now:       cfg.Clock,
		logger:    cfg.Logger,
	}
	if s.resolver == nil {
		s.resolver = NewPathResolver(cfg.Entries)
	}
	if s.locks == nil {
		s.locks = NewEntryLocks()
	}
	if s.retention == 0 {
		s.retention = config.DefaultTrashRetention
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateFolder inserts a folder entry and creates its directory on disk.
func (s *service) CreateFolder(ctx context.Context, req *services.CreateFolderRequest) (*models.Entry, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	if err := s.checkParent(ctx, req.ParentID); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &models.Entry{
		Name:      name,
		Type:      models.EntryTypeFolder,
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	dirPath, err := s.resolver.Resolve(ctx, entry)
	if err != nil {
		return nil, s.compensateCreate(ctx, "createFolder", entry, err)
	}
	if err := s.files.EnsureDir(dirPath); err != nil {
		return nil, s.compensateCreate(ctx, "createFolder", entry, fmt.Errorf("%w: %v", domain.ErrFilesystem, err))
	}

	entry.Path = dirPath
	s.logger.Info("folder created",
		"id", entry.ID.Hex(),
		"name", entry.Name,
		"path", dirPath,
	)
	return entry, nil
}

// CreateFile inserts a file entry and promotes the staged upload bytes
// into the resolved location.
func (s *service) CreateFile(ctx context.Context, req *services.CreateFileRequest) (*models.Entry, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		os.Remove(req.StagedPath)
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	if err := s.checkParent(ctx, req.ParentID); err != nil {
		os.Remove(req.StagedPath)
		return nil, err
	}

	now := s.now()
	entry := &models.Entry{
		Name:      name,
		Type:      models.EntryTypeFile,
		ParentID:  req.ParentID,
		Size:      req.Size,
		Extension: req.Extension,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		os.Remove(req.StagedPath)
		return nil, err
	}

	filePath, err := s.resolver.Resolve(ctx, entry)
	if err == nil {
		if dir := path.Dir(filePath); dir != "." {
			err = s.files.EnsureDir(dir)
		}
	}
	if err == nil {
		err = s.files.Promote(req.StagedPath, filePath)
	}
	if err != nil {
		// The store must never reference a file with no backing bytes.
		os.Remove(req.StagedPath)
		return nil, s.compensateCreate(ctx, "createFile", entry, fmt.Errorf("%w: %v", domain.ErrFilesystem, err))
	}

	entry.Path = filePath
	s.logger.Info("file created",
		"id", entry.ID.Hex(),
		"name", entry.Name,
		"size", entry.Size,
		"path", filePath,
	)
	return entry, nil
}

// Get retrieves an entry with its computed path.
func (s *service) Get(ctx context.Context, id bson.ObjectID) (*models.Entry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Path, err = s.resolver.Resolve(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Children lists the non-trashed children of a folder, hiding trashed
// items from the normal view.
func (s *service) Children(ctx context.Context, parentID *bson.ObjectID) ([]models.Entry, error) {
	children, err := s.entries.ListChildren(ctx, parentID, false)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// Rename changes an entry's name and renames its on-disk artifact. A
// folder rename moves the whole descendant subtree in one filesystem
// rename; descendant rows stay untouched because their paths are
// derived, not stored.
func (s *service) Rename(ctx context.Context, id bson.ObjectID, newName string) (*models.Entry, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(newName)
	if err := validateName(name); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if entry.IsFile() && entry.Extension != "" && !strings.HasSuffix(name, "."+entry.Extension) {
		name += "." + entry.Extension
	}

	oldName := entry.Name
	oldPath, err := s.resolver.Resolve(ctx, entry)
	if err != nil {
		return nil, err
	}

	entry.Name = name
	entry.UpdatedAt = s.now()
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	newPath, err := s.resolver.Resolve(ctx, entry)
	if err == nil {
		err = s.files.Rename(oldPath, newPath)
	}
	if err != nil {
		entry.Name = oldName
		if rbErr := s.entries.Update(ctx, entry); rbErr != nil {
			return nil, s.partialFailure("rename", entry.ID, err, rbErr)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	entry.Path = newPath
	s.logger.Info("entry renamed",
		"id", entry.ID.Hex(),
		"old_name", oldName,
		"new_name", entry.Name,
		"path", newPath,
	)
	return entry, nil
}

// Move reparents an entry and moves its on-disk artifact. nil target
// means the forest root.
func (s *service) Move(ctx context.Context, id bson.ObjectID, targetParentID *bson.ObjectID) (*models.Entry, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkParent(ctx, targetParentID); err != nil {
		return nil, err
	}
	if err := s.checkNoCycle(ctx, id, targetParentID); err != nil {
		return nil, err
	}

	oldParentID := entry.ParentID
	oldPath, err := s.resolver.Resolve(ctx, entry)
	if err != nil {
		return nil, err
	}

	entry.ParentID = targetParentID
	entry.UpdatedAt = s.now()
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	newPath, err := s.resolver.Resolve(ctx, entry)
	if err == nil {
		err = s.files.Rename(oldPath, newPath)
	}
	if err != nil {
		entry.ParentID = oldParentID
		if rbErr := s.entries.Update(ctx, entry); rbErr != nil {
			return nil, s.partialFailure("move", entry.ID, err, rbErr)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	entry.Path = newPath
	s.logger.Info("entry moved",
		"id", entry.ID.Hex(),
		"old_path", oldPath,
		"new_path", newPath,
	)
	return entry, nil
}

// SetTrash flips the trash flag on the entry and cascades it to every
// descendant. Purely a metadata change; the on-disk bytes stay put.
func (s *service) SetTrash(ctx context.Context, id bson.ObjectID, trash bool) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	var expiry *time.Time
	if trash {
		t := now.Add(s.retention)
		expiry = &t
	}

	flagged := 0
	queue := []models.Entry{*entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		current.IsTrash = trash
		current.ExpiryTime = expiry
		current.UpdatedAt = now
		if err := s.entries.Update(ctx, &current); err != nil {
			return fmt.Errorf("cascade trash flag to entry %s: %w", current.ID.Hex(), err)
		}
		flagged++

		children, err := s.entries.ListChildren(ctx, &current.ID, true)
		if err != nil {
			return fmt.Errorf("cascade trash flag below entry %s: %w", current.ID.Hex(), err)
		}
		queue = append(queue, children...)
	}

	s.logger.Info("trash flag updated",
		"id", id.Hex(),
		"is_trash", trash,
		"entries", flagged,
	)
	return nil
}

// TrashRoots lists the display roots of trashed subtrees: trashed
// entries whose parent is absent or not trashed. Recomputed per call
// rather than stored.
func (s *service) TrashRoots(ctx context.Context) ([]models.Entry, error) {
	trashed, err := s.entries.ListTrashed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trashed entries: %w", err)
	}

	trashedIDs := make(map[bson.ObjectID]struct{}, len(trashed))
	for _, e := range trashed {
		trashedIDs[e.ID] = struct{}{}
	}

	var roots []models.Entry
	for _, e := range trashed {
		if e.ParentID != nil {
			if _, ok := trashedIDs[*e.ParentID]; ok {
				continue
			}
		}
		roots = append(roots, e)
	}
	return roots, nil
}

// checkParent verifies the target parent exists, is a folder and is not
// trashed. nil is the forest root and always valid.
func (s *service) checkParent(ctx context.Context, parentID *bson.ObjectID) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.entries.GetByID(ctx, *parentID)
	if err != nil {
		return err
	}
	if !parent.IsFolder() {
		return fmt.Errorf("parent %s is not a folder: %w", parent.ID.Hex(), domain.ErrInvalidHierarchy)
	}
	if parent.IsTrash {
		return fmt.Errorf("parent %s is trashed: %w", parent.ID.Hex(), domain.ErrInvalidHierarchy)
	}
	return nil
}

// checkNoCycle rejects a move that would make an entry its own
// descendant by walking up from the target to the root.
func (s *service) checkNoCycle(ctx context.Context, id bson.ObjectID, targetParentID *bson.ObjectID) error {
	current := targetParentID
	for current != nil {
		if *current == id {
			return fmt.Errorf("cannot move an entry into its own subtree: %w", domain.ErrInvalidHierarchy)
		}
		ancestor, err := s.entries.GetByID(ctx, *current)
		if err != nil {
			return err
		}
		current = ancestor.ParentID
	}
	return nil
}

// compensateCreate deletes a freshly inserted entry after a failed
// filesystem step so the store never references a missing artifact.
func (s *service) compensateCreate(ctx context.Context, op string, entry *models.Entry, cause error) error {
	if delErr := s.entries.Delete(ctx, entry.ID); delErr != nil {
		return s.partialFailure(op, entry.ID, cause, delErr)
	}
	return cause
}

func (s *service) partialFailure(op string, id bson.ObjectID, fsErr, rollbackErr error) error {
	err := &domain.PartialFailureError{
		Op:          op,
		EntryID:     id.Hex(),
		FsErr:       fsErr,
		RollbackErr: rollbackErr,
	}
	s.logger.Error("PARTIAL FAILURE: store and filesystem need operator reconciliation",
		"op", op,
		"entry_id", id.Hex(),
		"fs_error", fsErr,
		"rollback_error", rollbackErr,
	)
	return err
}

func validateName(name string) error {
	return validation.Validate(name,
		validation.Required.Error("name is required"),
		validation.Length(1, config.MaxNameLength),
		validation.Match(nameNoSlash).Error("name cannot contain slashes"),
	)
}
