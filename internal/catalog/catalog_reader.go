package catalog

import (
	"database/sql"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-table-syncer/internal/connector"
	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

// Reader queries one engine's information schema for the inventory every
// sync decision is based on: table names, timestamps, approximate row counts,
// structural definitions, column layouts and whole-table checksums.
type Reader struct {
	DB     *connector.DatabaseConnector
	Logger *logrus.Logger

	// columns caches TableColumns results for the run's duration; repeated
	// calls for the same table would be redundant metadata round trips.
	columns map[string][]models.Column
}

// NewReader creates a catalog reader for one side of the sync.
func NewReader(db *connector.DatabaseConnector, logger *logrus.Logger) *Reader {
	return &Reader{
		DB:      db,
		Logger:  logger,
		columns: make(map[string][]models.Column),
	}
}

// Snapshot builds the schema snapshot: one descriptor per base table,
// ordered by the engine, keyed by name. TABLE_ROWS is the engine's
// approximation, not a COUNT(*); UPDATE_TIME falls back to CREATE_TIME.
// Any metadata failure is fatal to the run.
func (r *Reader) Snapshot() (models.SchemaSnapshot, error) {
	query := `
		SELECT table_name, create_time, update_time, table_rows
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := r.DB.DB.Query(query, r.DB.Schema)
	if err != nil {
		r.Logger.Errorf("Error listing tables on %s: %v", r.DB.Label, err)
		return nil, models.NewMetadataError("", err)
	}
	defer rows.Close()

	snapshot := make(models.SchemaSnapshot)
	for rows.Next() {
		var (
			name       string
			createTime sql.NullTime
			updateTime sql.NullTime
			tableRows  sql.NullInt64
		)
		if err := rows.Scan(&name, &createTime, &updateTime, &tableRows); err != nil {
			return nil, models.NewMetadataError("", err)
		}

		desc := models.TableDescriptor{
			Name:         name,
			LastModified: pickTimestamp(updateTime, createTime),
			RowCount:     tableRows.Int64,
		}
		snapshot[name] = desc
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewMetadataError("", err)
	}

	// SHOW CREATE TABLE cannot be batched; one round trip per table, in
	// name order for reproducible logs.
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		definition, err := r.tableDefinition(name)
		if err != nil {
			r.Logger.Errorf("Error fetching definition for table %s on %s: %v", name, r.DB.Label, err)
			return nil, models.NewMetadataError(name, err)
		}
		desc := snapshot[name]
		desc.Definition = definition
		snapshot[name] = desc
	}

	r.Logger.Infof("Catalog snapshot of %s schema %s: %d tables", r.DB.Label, r.DB.Schema, len(snapshot))
	return snapshot, nil
}

// TableColumns returns the column name/type/position triples for one table
// in ordinal order, cached for the run's duration.
func (r *Reader) TableColumns(table string) ([]models.Column, error) {
	if cached, ok := r.columns[table]; ok {
		return cached, nil
	}

	query := `
		SELECT column_name, data_type, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ?
		AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := r.DB.DB.Query(query, r.DB.Schema, table)
	if err != nil {
		return nil, models.NewMetadataError(table, err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		if err := rows.Scan(&col.Name, &col.DataType, &col.OrdinalPosition); err != nil {
			return nil, models.NewMetadataError(table, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewMetadataError(table, err)
	}

	r.columns[table] = columns
	return columns, nil
}

// TableChecksum computes the engine's extended whole-table checksum. The
// checksum is NULL for storage engines that do not support it; the detector
// treats that conservatively.
func (r *Reader) TableChecksum(table string) (sql.NullInt64, error) {
	var (
		tableName string
		checksum  sql.NullInt64
	)
	query := "CHECKSUM TABLE " + connector.QuoteIdentifier(table) + " EXTENDED"
	if err := r.DB.DB.QueryRow(query).Scan(&tableName, &checksum); err != nil {
		return sql.NullInt64{}, models.NewMetadataError(table, err)
	}
	return checksum, nil
}

// tableDefinition fetches the verbatim SHOW CREATE TABLE text.
func (r *Reader) tableDefinition(table string) (string, error) {
	var name, definition string
	query := "SHOW CREATE TABLE " + connector.QuoteIdentifier(table)
	if err := r.DB.DB.QueryRow(query).Scan(&name, &definition); err != nil {
		return "", err
	}
	return definition, nil
}

// pickTimestamp prefers the update time and falls back to the creation time.
// Both come from the same information_schema DATETIME class, so comparisons
// between the two sides never mix timestamp kinds.
func pickTimestamp(updateTime, createTime sql.NullTime) *time.Time {
	if updateTime.Valid {
		t := updateTime.Time
		return &t
	}
	if createTime.Valid {
		t := createTime.Time
		return &t
	}
	return nil
}
