package actions

import (
	"context"

	"github.com/materials-commons/depot/pkg/upload"
	"github.com/pkg/errors"
)

// The Service doubles as the taskq.Host the built-in deferred tasks run
// against. Deferred work executes as the system principal.

func (s *Service) CreateFile(ctx context.Context, storageName, name string, up *upload.Upload) (map[string]interface{}, error) {
	return s.FileCreate(ctx, SystemPrincipal, FileCreateParams{
		Storage: storageName,
		Name:    name,
		Upload:  up,
	})
}

func (s *Service) TransferFileOwnership(ctx context.Context, fileID, ownerType, ownerID, actor string, force bool) error {
	p := SystemPrincipal
	if actor != "" {
		p.ID = actor
	}

	_, err := s.TransferOwnership(ctx, p, fileID, ownerType, ownerID, force)

	return err
}

// Invoke runs a registered host action by name.
func (s *Service) Invoke(ctx context.Context, action string, params map[string]interface{}) (map[string]interface{}, error) {
	fn, ok := s.namedAction(action)
	if !ok {
		return nil, errors.Errorf("unknown action: %s", action)
	}

	return fn(ctx, SystemPrincipal, params)
}
