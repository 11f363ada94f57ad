package index

import (
	"context"
	"log/slog"

	"github.com/starford/othala/internal/metrics"
	"github.com/starford/othala/internal/storage"
)

// ReconcileResult summarises one Reconcile pass.
type ReconcileResult struct {
	Checked int
	Pruned  int
	Failed  int
}

// Reconcile walks every live link and removes the ones whose target no longer
// resolves in the store. Such links are left behind when an entry is removed
// at the store level while another base still points at it.
//
// Failures on individual links are logged and counted, not returned; only a
// failure to enumerate the index aborts the pass.
func Reconcile(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) (ReconcileResult, error) {
	links, err := db.allLinks(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	var res ReconcileResult
	known := make(map[string]bool)
	for _, l := range links {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		ok, seen := known[string(l.Target)]
		if !seen {
			ok, err = store.Has(ctx, l.Target)
			if err != nil {
				res.Failed++
				logger.Warn("reconcile: lookup failed", slog.String("target", l.Target.String()), slog.String("error", err.Error()))
				continue
			}
			known[string(l.Target)] = ok
		}
		if ok {
			continue
		}

		if err := db.RemoveLink(ctx, l); err != nil {
			res.Failed++
			logger.Warn("reconcile: prune failed",
				slog.String("base", l.Base.String()),
				slog.String("target", l.Target.String()),
				slog.String("error", err.Error()))
			continue
		}
		res.Pruned++
		metrics.LinksPruned.Inc()
		logger.Debug("reconcile: pruned dangling link",
			slog.String("base", l.Base.String()),
			slog.String("type", l.Type),
			slog.String("target", l.Target.String()))
	}

	logger.Info("reconcile: done",
		slog.Int("checked", res.Checked),
		slog.Int("pruned", res.Pruned),
		slog.Int("failed", res.Failed))
	return res, nil
}
