package launcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/domain/activation"
	"github.com/anon-safe/safe-launcher/internal/domain/resource"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/tracing"
	"github.com/anon-safe/safe-launcher/internal/nfs"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/paths"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
	"github.com/anon-safe/safe-launcher/internal/shared/utils"
)

// activationFailed labels activations that returned an error
const activationFailed types.ActivationOutcome = "failed"

// onAdd registers a launch path.
//
// The candidate root directories of the app name are walked in order. A
// directory referenced by a row whose app is already registered on this
// machine belongs to a different local app and is skipped. A directory
// referenced by a row of the same app name that this machine does not
// know yet is adopted: the row keeps its id and gains a reference. A
// directory with no row at all is an orphan and is adopted with a new row.
func (l *Launcher) onAdd(ctx context.Context, detail types.AppDetail) (types.AddResult, error) {
	if err := utils.ValidateLaunchPath(detail.AbsolutePath); err != nil {
		return types.AddResult{}, fmt.Errorf("%v: %w", err, types.ErrInvalidPath)
	}

	if existing, ok := l.cache.FindPath(detail.AbsolutePath); ok {
		l.log.Debug("path already registered",
			zap.String("app_id", existing.String()),
			zap.String("path", detail.AbsolutePath))
		return types.AddResult{AppID: existing, Duplicate: true}, nil
	}

	name, err := paths.AppName(detail.AbsolutePath)
	if err != nil {
		return types.AddResult{}, fmt.Errorf("%v: %w", err, types.ErrInvalidPath)
	}

	rows, _, err := l.shared.Fetch(ctx)
	if err != nil {
		return types.AddResult{}, err
	}

	var adopted *types.SharedAppConfig
	alloc, err := l.resources.AllocateOrReuse(ctx, name, func(dir nfs.DirectoryInfo) bool {
		owner := -1
		for i := range rows {
			if rows[i].AppRootDirKey == dir.Key {
				owner = i
				break
			}
		}
		if owner < 0 {
			return true
		}
		row := rows[owner]
		if _, local := l.cache[row.AppID]; local || row.AppName != name {
			return false
		}
		adopted = &row
		return true
	})
	if err != nil {
		return types.AddResult{}, err
	}

	var row types.SharedAppConfig
	if adopted != nil {
		row = *adopted
		row.ReferenceCount++
	} else {
		appID, err := l.ids.NewAppID()
		if err != nil {
			return types.AddResult{}, err
		}
		row = types.SharedAppConfig{
			AppID:          appID,
			AppName:        name,
			ReferenceCount: 1,
			AppRootDirKey:  alloc.Key,
			DriveAccess:    detail.DriveAccess,
		}
	}

	if err := l.shared.Upsert(ctx, row); err != nil {
		if !alloc.Reused {
			l.rollbackAllocation(ctx, alloc)
		}
		return types.AddResult{}, err
	}

	l.cache[row.AppID] = detail.AbsolutePath
	l.setLocalApps()

	l.log.Info("application added",
		zap.String("app_id", row.AppID.String()),
		zap.String("name", name),
		zap.String("root_dir", alloc.Name),
		zap.Uint32("reference_count", row.ReferenceCount),
		zap.Bool("reused", alloc.Reused),
		tracing.Field(ctx))
	return types.AddResult{AppID: row.AppID, Reused: alloc.Reused}, nil
}

// rollbackAllocation deletes a root directory created for an add whose row
// could not be written. A directory left behind is adopted by a later add.
func (l *Launcher) rollbackAllocation(ctx context.Context, alloc resource.Allocation) {
	err := l.resources.Reclaim(ctx, alloc.Key)
	switch {
	case err == nil:
		l.log.Info("rolled back root directory", zap.String("name", alloc.Name))
	case resource.IsGone(err):
		l.log.Debug("root directory already gone", zap.String("name", alloc.Name))
	default:
		l.log.Warn("failed to roll back root directory",
			zap.String("name", alloc.Name),
			zap.Error(err))
	}
}

// onRemove drops one reference. The local entry goes away once the shared
// row has been written back, or when there was no row to begin with. Any
// other failure keeps it so the remove can be retried.
func (l *Launcher) onRemove(ctx context.Context, appID id.AppID) (types.RemoveResult, error) {
	removal, err := l.shared.RemoveOrDecrement(ctx, appID)

	if err == nil || errors.Is(err, types.ErrLogic) {
		if _, ok := l.cache[appID]; ok {
			delete(l.cache, appID)
			l.setLocalApps()
		}
		if nerr := l.notifier.AppTerminated(ctx, appID); nerr != nil {
			l.log.Warn("failed to notify termination", zap.String("app_id", appID.String()), zap.Error(nerr))
		}
	}

	result := types.RemoveResult{AppID: appID, Reclaimed: removal.Reclaimed}
	if removal.Reclaimed && l.metrics != nil {
		l.metrics.RecordReclaim()
	}
	if err != nil {
		l.log.Warn("remove failed", zap.String("app_id", appID.String()), tracing.Field(ctx), zap.Error(err))
		return result, err
	}

	l.log.Info("application removed",
		zap.String("app_id", appID.String()),
		zap.Uint32("reference_count", removal.Row.ReferenceCount),
		zap.Bool("reclaimed", removal.Reclaimed),
		tracing.Field(ctx))
	return result, nil
}

// onActivate launches an app that is registered both in the shared
// configuration and on this machine
func (l *Launcher) onActivate(ctx context.Context, appID id.AppID) (types.ActivationOutcome, error) {
	rows, _, err := l.shared.Fetch(ctx)
	if err != nil {
		return "", err
	}

	row, path, ok := activation.Resolve(rows, func(appID id.AppID) (string, bool) {
		p, ok := l.cache[appID]
		return p, ok
	}, appID)
	if !ok {
		l.log.Debug("activation skipped", zap.String("app_id", appID.String()))
		l.recordActivation(types.ActivationSkipped)
		return types.ActivationSkipped, nil
	}

	if err := l.activator.Activate(ctx, row, path, l.endpoint); err != nil {
		l.recordActivation(activationFailed)
		return "", err
	}
	l.recordActivation(types.ActivationLaunched)
	return types.ActivationLaunched, nil
}

func (l *Launcher) recordActivation(outcome types.ActivationOutcome) {
	if l.metrics != nil {
		l.metrics.RecordActivation(string(outcome))
	}
}
