// Package actions is the back-end-neutral operation surface over the
// catalog and the storage registry. Every action validates its inputs,
// authorizes the caller, dispatches to the façade and the stors, and
// returns dictized records. Actions run inside a task queue scope when
// the host wants deferred work (see pkg/taskq).
package actions

import (
	"context"
	"sync"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/clog"
	"github.com/materials-commons/depot/pkg/depotdb/model"
	"github.com/materials-commons/depot/pkg/depotdb/stor"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"gorm.io/gorm"
)

// Principal identifies the caller of an action.
type Principal struct {
	ID   string
	Type string

	// ManageFiles grants the manage_files permission: search across all
	// owners, register and scan back-ends, operate on any file.
	ManageFiles bool
}

// SystemPrincipal is the caller used for deferred task work.
var SystemPrincipal = Principal{ID: "system", Type: "system", ManageFiles: true}

// CascadeFunc implements the cascade access rule: it reports whether the
// principal has access over the owning entity of the given owner row.
// The host wires this in when it keeps an entity graph.
type CascadeFunc func(ctx context.Context, p Principal, owner *model.Owner) bool

// ActionFunc is a host action invokable by name from deferred tasks.
type ActionFunc func(ctx context.Context, p Principal, params map[string]interface{}) (map[string]interface{}, error)

type Service struct {
	stors   *stor.Stors
	cascade CascadeFunc

	namedMu sync.Mutex
	named   map[string]ActionFunc
}

type Option func(*Service)

func WithCascade(fn CascadeFunc) Option {
	return func(s *Service) {
		s.cascade = fn
	}
}

func NewService(stors *stor.Stors, opts ...Option) *Service {
	s := &Service{
		stors: stors,
		named: map[string]ActionFunc{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RegisterAction makes a host action invokable by name from deferred
// tasks (eg "user_patch" for UploadAndAttachTask).
func (s *Service) RegisterAction(name string, fn ActionFunc) {
	s.namedMu.Lock()
	defer s.namedMu.Unlock()
	s.named[name] = fn
}

func (s *Service) namedAction(name string) (ActionFunc, bool) {
	s.namedMu.Lock()
	defer s.namedMu.Unlock()
	fn, ok := s.named[name]
	return fn, ok
}

// authorizeItem checks that the principal may operate on the item. An
// item without an owner row is open to any caller; an owned item
// requires the principal to be the owner (compared by owner_id and
// owner_type), hold manage_files, or reach it through the cascade rule.
func (s *Service) authorizeItem(ctx context.Context, p Principal, action, itemID, itemType string) (*model.Owner, error) {
	owner, err := s.stors.OwnerStor.GetOwner(itemID, itemType)
	switch {
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	case err != nil:
		return nil, err
	}

	if s.ownsOrManages(ctx, p, owner) {
		return owner, nil
	}

	return nil, &errs.NotAuthorizedError{Action: action}
}

func (s *Service) ownsOrManages(ctx context.Context, p Principal, owner *model.Owner) bool {
	if p.ManageFiles {
		return true
	}

	if owner.OwnerType == p.Type && owner.OwnerID == p.ID {
		return true
	}

	return s.cascade != nil && s.cascade(ctx, p, owner)
}

func (s *Service) requireManageFiles(p Principal, action string) error {
	if !p.ManageFiles {
		return &errs.NotAuthorizedError{Action: action}
	}

	return nil
}

// dictizeFile is the File record the action surface returns: the row's
// fields plus a computed url when the storage can produce one.
func (s *Service) dictizeFile(ctx context.Context, file *model.File) map[string]interface{} {
	m := file.ToMap()
	m["url"] = s.urlFor(ctx, file)

	return m
}

func (s *Service) urlFor(ctx context.Context, file *model.File) string {
	st, err := storage.GetStorage(file.Storage)
	if err != nil {
		return ""
	}

	data := fileDataFromModel(file)

	if st.Supports(capability.Download) {
		if link, err := st.DownloadLink(ctx, data); err == nil {
			return link
		}
	}

	if st.Supports(capability.PublicLink) {
		link, err := st.PermanentLink(ctx, data)
		if err != nil {
			clog.UsingStorage(file.Storage).
				WithField("location", file.Location).
				Debugf("Failed building permanent link: %s", err)
			return ""
		}
		return link
	}

	return ""
}

func fileDataFromModel(file *model.File) *storage.FileData {
	return &storage.FileData{
		Location:    file.Location,
		Size:        file.Size,
		ContentType: file.ContentType,
		Hash:        file.Hash,
		StorageData: storage.StorageData(model.DecodeJSONMap(file.StorageData)),
	}
}

func multipartDataFromModel(mp *model.Multipart) *storage.MultipartData {
	return &storage.MultipartData{
		FileData: storage.FileData{
			Location:    mp.Location,
			Size:        mp.Size,
			ContentType: mp.ContentType,
			Hash:        mp.Hash,
			StorageData: storage.StorageData(model.DecodeJSONMap(mp.StorageData)),
		},
		Uploaded: mp.Uploaded,
	}
}
