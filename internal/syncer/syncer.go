package syncer

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-table-syncer/internal/catalog"
	"github.com/vitebski/mysql-table-syncer/internal/connector"
	"github.com/vitebski/mysql-table-syncer/internal/detector"
	"github.com/vitebski/mysql-table-syncer/internal/ledger"
	"github.com/vitebski/mysql-table-syncer/internal/transfer"
	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

// TableSyncer drives one whole run: snapshot both sides, walk the tables in
// lexicographic order, skip what the ledger already records, decide
// divergence per table and hand diverged tables to the orchestrator. Tables
// are processed strictly one at a time.
type TableSyncer struct {
	Source        *connector.DatabaseConnector
	Target        *connector.DatabaseConnector
	SourceCatalog *catalog.Reader
	TargetCatalog *catalog.Reader
	Detector      *detector.Detector
	Orchestrator  *transfer.Orchestrator
	Ledger        *ledger.Ledger
	DryRun        bool
	Tables        []string
	Logger        *logrus.Logger
}

// NewTableSyncer creates the run loop around already constructed components.
func NewTableSyncer(
	source *connector.DatabaseConnector,
	target *connector.DatabaseConnector,
	sourceCatalog *catalog.Reader,
	targetCatalog *catalog.Reader,
	det *detector.Detector,
	orchestrator *transfer.Orchestrator,
	ldg *ledger.Ledger,
	dryRun bool,
	tables []string,
	logger *logrus.Logger,
) *TableSyncer {
	return &TableSyncer{
		Source:        source,
		Target:        target,
		SourceCatalog: sourceCatalog,
		TargetCatalog: targetCatalog,
		Detector:      det,
		Orchestrator:  orchestrator,
		Ledger:        ldg,
		DryRun:        dryRun,
		Tables:        tables,
		Logger:        logger,
	}
}

// Run executes the campaign. The returned summary is complete even when err
// is non-nil; err is only set for run-fatal failures (connectivity or
// metadata), while per-table transfer failures are isolated in the summary.
func (ts *TableSyncer) Run() (models.RunSummary, error) {
	var summary models.RunSummary

	runID := uuid.New().String()
	ts.Logger.Infof("Starting sync run %s (strategy: %s)", runID, ts.Detector.Strategy)

	sourceSnapshot, err := ts.SourceCatalog.Snapshot()
	if err != nil {
		return summary, err
	}
	targetSnapshot, err := ts.TargetCatalog.Snapshot()
	if err != nil {
		return summary, err
	}

	tables := ts.orderedTables(sourceSnapshot)
	ts.Logger.Infof("%d source tables eligible for synchronization", len(tables))

	for _, table := range tables {
		// Resumability takes precedence over re-evaluating divergence:
		// a ledgered table is skipped unconditionally.
		if ts.Ledger.Contains(table) {
			ts.Logger.Infof("Skipping %s: already completed in this campaign", table)
			summary.SkippedLedger = append(summary.SkippedLedger, table)
			continue
		}

		sourceDesc := sourceSnapshot[table]
		var targetDesc *models.TableDescriptor
		if desc, ok := targetSnapshot[table]; ok {
			targetDesc = &desc
		}

		decision, err := ts.Detector.Decide(sourceDesc, targetDesc)
		if err != nil {
			// Checksum queries are catalog metadata; their failure aborts
			// the run like every other metadata failure.
			return summary, err
		}

		if !decision.PopulateRequired {
			ts.Logger.Infof("Table %s is in sync", table)
			summary.InSync = append(summary.InSync, table)
			continue
		}

		ts.Logger.Infof("Table %s requires refresh: %s (drop: %t)", table, decision.Reason, decision.DropRequired)
		if ts.DryRun {
			summary.Transferred = append(summary.Transferred, table)
			continue
		}

		if err := ts.Orchestrator.SyncTable(sourceDesc, decision); err != nil {
			if models.IsFatal(err) {
				return summary, err
			}
			ts.Logger.Errorf("Transfer of %s failed: %v", table, err)
			summary.Failed = append(summary.Failed, table)

			// A dead connection means no further engine call can succeed.
			if pingErr := ts.pingBothSides(); pingErr != nil {
				return summary, pingErr
			}
			continue
		}

		ts.Logger.Infof("Table %s completed", table)
		summary.Transferred = append(summary.Transferred, table)
	}

	ts.Logger.Infof("Sync run %s finished: %d transferred, %d skipped via ledger, %d in sync, %d failed",
		runID, len(summary.Transferred), len(summary.SkippedLedger), len(summary.InSync), len(summary.Failed))
	return summary, nil
}

// orderedTables returns the source table names in lexicographic order,
// reduced by the optional include filter. Deterministic order keeps logs and
// reruns reproducible.
func (ts *TableSyncer) orderedTables(snapshot models.SchemaSnapshot) []string {
	include := make(map[string]bool, len(ts.Tables))
	for _, name := range ts.Tables {
		include[name] = true
	}

	var tables []string
	for name := range snapshot {
		if len(include) > 0 && !include[name] {
			continue
		}
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}

// pingBothSides upgrades a table-level failure to a run-fatal connectivity
// error when either engine has become unreachable.
func (ts *TableSyncer) pingBothSides() error {
	if err := ts.Source.Ping(); err != nil {
		return models.NewConnectivityError(fmt.Errorf("source engine unreachable: %w", err))
	}
	if err := ts.Target.Ping(); err != nil {
		return models.NewConnectivityError(fmt.Errorf("target engine unreachable: %w", err))
	}
	return nil
}
