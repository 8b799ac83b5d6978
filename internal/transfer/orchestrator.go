package transfer

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-table-syncer/internal/catalog"
	"github.com/vitebski/mysql-table-syncer/internal/codec"
	"github.com/vitebski/mysql-table-syncer/internal/connector"
	"github.com/vitebski/mysql-table-syncer/internal/ledger"
	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

// Orchestrator rebuilds one target table at a time from the source: drop the
// stale copy when required, re-issue the source's definition, export rows to
// a delimited artifact under a read lock, bulk-load the artifact under a
// write lock, then record the table in the ledger. Each table's transfer owns
// its artifact exclusively for the duration.
type Orchestrator struct {
	Source        *connector.DatabaseConnector
	Target        *connector.DatabaseConnector
	SourceCatalog *catalog.Reader
	Ledger        *ledger.Ledger
	WorkDir       string
	KeepArtifacts bool
	Logger        *logrus.Logger
}

// NewOrchestrator creates a transfer orchestrator.
func NewOrchestrator(
	source *connector.DatabaseConnector,
	target *connector.DatabaseConnector,
	sourceCatalog *catalog.Reader,
	ldg *ledger.Ledger,
	workDir string,
	keepArtifacts bool,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		Source:        source,
		Target:        target,
		SourceCatalog: sourceCatalog,
		Ledger:        ldg,
		WorkDir:       workDir,
		KeepArtifacts: keepArtifacts,
		Logger:        logger,
	}
}

// SyncTable drives the per-table state machine
// Pending -> Dropping? -> Creating -> Exporting -> Importing -> Completed.
// Any failure leaves the table unrecorded in the ledger so a later run
// redoes it from scratch.
func (o *Orchestrator) SyncTable(desc models.TableDescriptor, decision models.RefreshDecision) error {
	columns, err := o.SourceCatalog.TableColumns(desc.Name)
	if err != nil {
		return err
	}
	tableCodec, err := codec.NewTableCodec(columns)
	if err != nil {
		return models.NewTransferError(desc.Name, models.PhasePending, err)
	}

	if decision.DropRequired {
		o.Logger.Infof("Dropping stale target table %s", desc.Name)
		if err := o.dropTable(desc.Name); err != nil {
			return models.NewTransferError(desc.Name, models.PhaseDropping, err)
		}
	}

	o.Logger.Infof("Creating target table %s from source definition", desc.Name)
	if err := o.createTable(desc); err != nil {
		return models.NewTransferError(desc.Name, models.PhaseCreating, err)
	}

	artifact := filepath.Join(o.WorkDir, desc.Name+".txt")
	rowCount, err := o.exportRows(desc.Name, tableCodec, artifact)
	if err != nil {
		// A partial artifact is never consumed; discard it so the next run
		// re-exports from scratch.
		os.Remove(artifact)
		return models.NewTransferError(desc.Name, models.PhaseExporting, err)
	}
	o.Logger.Infof("Exported %d rows of %s to %s", rowCount, desc.Name, artifact)

	if err := o.importRows(desc.Name, tableCodec, artifact); err != nil {
		return models.NewTransferError(desc.Name, models.PhaseImporting, err)
	}
	o.Logger.Infof("Imported %s into target", desc.Name)

	// The ledger append happens strictly after a successful import; it is
	// the sole signal that later runs may skip the table.
	if err := o.Ledger.Append(desc.Name); err != nil {
		return models.NewTransferError(desc.Name, models.PhaseCompleted, err)
	}

	if !o.KeepArtifacts {
		if err := os.Remove(artifact); err != nil {
			o.Logger.Warningf("Could not remove artifact %s: %v", artifact, err)
		}
	}

	return nil
}

// dropTable removes the existing target table.
func (o *Orchestrator) dropTable(table string) error {
	_, err := o.Target.ExecuteStatement("DROP TABLE IF EXISTS " + connector.QuoteIdentifier(table))
	return err
}

// createTable re-issues the source's reported CREATE TABLE text verbatim
// against the target.
func (o *Orchestrator) createTable(desc models.TableDescriptor) error {
	if strings.TrimSpace(desc.Definition) == "" {
		return fmt.Errorf("source definition for table %s is empty", desc.Name)
	}
	_, err := o.Target.ExecuteStatement(desc.Definition)
	return err
}

// exportRows streams all rows of the source table into the artifact while
// holding a table read lock. LOCK TABLES is session-scoped, so the lock, the
// SELECT and the UNLOCK all run on one pinned connection. The artifact is
// fsynced before the lock is released.
func (o *Orchestrator) exportRows(table string, tableCodec *codec.TableCodec, artifact string) (int64, error) {
	ctx := context.Background()

	session, err := o.Source.AcquireSession()
	if err != nil {
		return 0, err
	}
	defer session.Close()

	quoted := connector.QuoteIdentifier(table)
	if _, err := session.ExecContext(ctx, "LOCK TABLES "+quoted+" READ"); err != nil {
		return 0, fmt.Errorf("acquiring read lock on %s: %w", table, err)
	}
	defer session.ExecContext(ctx, "UNLOCK TABLES")

	file, err := os.Create(artifact)
	if err != nil {
		return 0, fmt.Errorf("creating artifact %s: %w", artifact, err)
	}
	defer file.Close()
	writer := bufio.NewWriter(file)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(tableCodec.ColumnNames(), ", "), quoted)
	rows, err := session.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("exporting rows of %s: %w", table, err)
	}
	defer rows.Close()

	columnCount := len(tableCodec.Columns)
	raw := make([]sql.RawBytes, columnCount)
	scanArgs := make([]interface{}, columnCount)
	for i := range raw {
		scanArgs[i] = &raw[i]
	}

	var rowCount int64
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return 0, fmt.Errorf("scanning row of %s: %w", table, err)
		}
		for i, value := range raw {
			if i > 0 {
				if err := writer.WriteByte(codec.FieldDelimiter); err != nil {
					return 0, err
				}
			}
			if _, err := writer.WriteString(tableCodec.EncodeField(i, value, value == nil)); err != nil {
				return 0, err
			}
		}
		if err := writer.WriteByte(codec.LineTerminator); err != nil {
			return 0, err
		}
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating rows of %s: %w", table, err)
	}

	if err := writer.Flush(); err != nil {
		return 0, err
	}
	if err := file.Sync(); err != nil {
		return 0, fmt.Errorf("syncing artifact %s: %w", artifact, err)
	}

	return rowCount, nil
}

// importRows bulk-loads the artifact into the freshly created target table
// while holding a table write lock, binding fields positionally and decoding
// hex-staged binary columns through the codec's SET clause.
func (o *Orchestrator) importRows(table string, tableCodec *codec.TableCodec, artifact string) error {
	ctx := context.Background()

	// The driver only reads local files that were explicitly whitelisted.
	mysql.RegisterLocalFile(artifact)
	defer mysql.DeregisterLocalFile(artifact)

	session, err := o.Target.AcquireSession()
	if err != nil {
		return err
	}
	defer session.Close()

	quoted := connector.QuoteIdentifier(table)
	if _, err := session.ExecContext(ctx, "LOCK TABLES "+quoted+" WRITE"); err != nil {
		return fmt.Errorf("acquiring write lock on %s: %w", table, err)
	}
	defer session.ExecContext(ctx, "UNLOCK TABLES")

	statement := fmt.Sprintf("LOAD DATA LOCAL INFILE '%s' INTO TABLE %s %s",
		escapePath(artifact), quoted, tableCodec.LoadColumnList())
	if setClause := tableCodec.LoadSetClause(); setClause != "" {
		statement += " " + setClause
	}

	if _, err := session.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("loading %s into %s: %w", artifact, table, err)
	}

	return nil
}

// escapePath protects the artifact path inside the single-quoted SQL string
// literal of the LOAD DATA statement.
func escapePath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	return strings.ReplaceAll(path, `'`, `\'`)
}
