package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/zoop/internal/install"
	"github.com/ZebulonRouseFrantzich/zoop/internal/options"
)

// Installer installs one app reference.
type Installer interface {
	Install(ctx context.Context, spec string, opts options.InstallOptions) (*install.Result, error)
}

// InstallService installs several apps in order.
type InstallService struct {
	installer Installer
}

// NewInstallService creates an install service.
func NewInstallService(installer Installer) *InstallService {
	return &InstallService{installer: installer}
}

// InstallOutcome is the result for one requested app.
type InstallOutcome struct {
	Spec   string
	Result *install.Result
	Err    error
}

// InstallAll installs each spec in turn. A failing app does not stop the
// rest; the returned error joins every failure. Cancellation stops the
// batch.
func (s *InstallService) InstallAll(ctx context.Context, specs []string, opts options.InstallOptions) ([]InstallOutcome, error) {
	outcomes := make([]InstallOutcome, 0, len(specs))
	var errs []error
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.installer.Install(ctx, spec, opts)
		outcomes = append(outcomes, InstallOutcome{Spec: spec, Result: res, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", spec, err))
		}
	}
	return outcomes, errors.Join(errs...)
}
