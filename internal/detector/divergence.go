package detector

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-table-syncer/internal/catalog"
	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

// Detector decides per table whether the target copy must be refreshed.
// Exactly one strategy is active; when refresh is needed for a table that
// exists on the target, the table is dropped and rebuilt from the source's
// current definition rather than reconciled row by row.
type Detector struct {
	Strategy      models.Strategy
	SourceCatalog *catalog.Reader
	TargetCatalog *catalog.Reader
	Logger        *logrus.Logger
}

// NewDetector creates a divergence detector. It fails with a configuration
// error if no strategy is set, before any table is touched.
func NewDetector(strategy models.Strategy, source, target *catalog.Reader, logger *logrus.Logger) (*Detector, error) {
	if strategy == models.StrategyUnset {
		return nil, models.NewConfigError(fmt.Errorf("no divergence strategy configured: choose one of timestamp, rowcount, checksum"))
	}
	return &Detector{
		Strategy:      strategy,
		SourceCatalog: source,
		TargetCatalog: target,
		Logger:        logger,
	}, nil
}

// Decide returns the refresh decision for one table. target is nil when the
// table is absent from the target schema.
func (d *Detector) Decide(source models.TableDescriptor, target *models.TableDescriptor) (models.RefreshDecision, error) {
	// Nothing to drop when the table does not exist yet.
	if target == nil {
		return models.RefreshDecision{
			DropRequired:     false,
			PopulateRequired: true,
			Reason:           "absent from target",
		}, nil
	}

	switch d.Strategy {
	case models.ByTimestamp:
		return d.decideByTimestamp(source, target), nil
	case models.ByRowCount:
		return d.decideByRowCount(source, target), nil
	case models.ByChecksum:
		return d.decideByChecksum(source, target)
	default:
		return models.RefreshDecision{}, models.NewConfigError(fmt.Errorf("no divergence strategy configured"))
	}
}

// decideByTimestamp refreshes only when the source's last-modified instant is
// strictly later than the target's. Equal or earlier means no-op. A missing
// timestamp on either side is treated as diverged, since nothing proves the
// copies match.
func (d *Detector) decideByTimestamp(source models.TableDescriptor, target *models.TableDescriptor) models.RefreshDecision {
	if source.LastModified == nil || target.LastModified == nil {
		return refresh(fmt.Sprintf("missing last-modified timestamp (source known: %t, target known: %t)",
			source.LastModified != nil, target.LastModified != nil))
	}
	if source.LastModified.After(*target.LastModified) {
		return refresh(fmt.Sprintf("source modified at %s, target at %s",
			source.LastModified.Format("2006-01-02 15:04:05"),
			target.LastModified.Format("2006-01-02 15:04:05")))
	}
	return inSync()
}

// decideByRowCount refreshes when the approximate counts differ. Equal counts
// never trigger a refresh even if the content differs; that blind spot is the
// accepted price of the cheap check.
func (d *Detector) decideByRowCount(source models.TableDescriptor, target *models.TableDescriptor) models.RefreshDecision {
	if source.RowCount != target.RowCount {
		return refresh(fmt.Sprintf("row counts differ (source ~%d, target ~%d)", source.RowCount, target.RowCount))
	}
	return inSync()
}

// decideByChecksum computes the extended table checksum on both sides and
// refreshes when they differ. A NULL checksum on either side (unsupported
// storage engine) is treated as diverged.
func (d *Detector) decideByChecksum(source models.TableDescriptor, target *models.TableDescriptor) (models.RefreshDecision, error) {
	srcSum, err := d.SourceCatalog.TableChecksum(source.Name)
	if err != nil {
		return models.RefreshDecision{}, err
	}
	tgtSum, err := d.TargetCatalog.TableChecksum(target.Name)
	if err != nil {
		return models.RefreshDecision{}, err
	}

	if !srcSum.Valid || !tgtSum.Valid {
		return refresh("checksum unavailable on at least one side"), nil
	}
	if srcSum.Int64 != tgtSum.Int64 {
		return refresh(fmt.Sprintf("checksums differ (source %d, target %d)", srcSum.Int64, tgtSum.Int64)), nil
	}
	return inSync(), nil
}

func refresh(reason string) models.RefreshDecision {
	return models.RefreshDecision{
		DropRequired:     true,
		PopulateRequired: true,
		Reason:           reason,
	}
}

func inSync() models.RefreshDecision {
	return models.RefreshDecision{Reason: "in sync"}
}
