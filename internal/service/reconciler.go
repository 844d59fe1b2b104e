package service

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/metrics"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// Reconciler audits the maintained team member counters.
type Reconciler struct{ Deps }

func NewReconciler(d Deps) *Reconciler { return &Reconciler{d} }

// ReconcileMemberCounts recomputes the member counter of every team that
// disagrees with its in-team memberships and returns how many teams were
// corrected.
func (r *Reconciler) ReconcileMemberCounts(ctx context.Context) (int, error) {
	drift, err := r.Repos.Teams.Drift(ctx)
	if err != nil {
		return 0, err
	}
	if len(drift) == 0 {
		return 0, nil
	}
	err = repository.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, d := range drift {
			if err := r.Repos.Teams.ResetMemberTx(ctx, tx, d.TeamID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, d := range drift {
		r.Log.WithFields(logrus.Fields{"team_id": d.TeamID, "stored": d.Stored, "actual": d.Actual}).
			Warn("team member count drifted")
	}
	metrics.RecordMemberDrift(len(drift))
	return len(drift), nil
}

// Run is the cron entry point.
func (r *Reconciler) Run() {
	n, err := r.ReconcileMemberCounts(context.Background())
	if err != nil {
		r.Log.WithError(err).Error("member count reconciliation failed")
		return
	}
	r.Log.WithField("corrected", n).Info("member count reconciliation finished")
}
