package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// DatabaseConnector handles the connection to one MySQL engine (source or
// target) and query execution against it.
type DatabaseConnector struct {
	Label    string // "source" or "target", for logs and errors
	Host     string
	User     string
	Password string
	Schema   string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a connector for one side of the sync.
func NewDatabaseConnector(label, host, user, password, schema, port string, logger *logrus.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Label:    label,
		Host:     host,
		User:     user,
		Password: password,
		Schema:   schema,
		Port:     port,
		Logger:   logger,
	}
}

// Connect establishes a connection to the MySQL engine and verifies it with
// a ping. allowAllFiles is left off; LOAD DATA paths are whitelisted
// individually via mysql.RegisterLocalFile by the transfer orchestrator.
func (dc *DatabaseConnector) Connect() error {
	if dc.Schema == "" {
		return fmt.Errorf("%s: schema name must be provided", dc.Label)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC", dc.User, dc.Password, dc.Host, dc.Port, dc.Schema)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		dc.Logger.Errorf("Error connecting to %s MySQL engine: %v", dc.Label, err)
		return err
	}

	if err := db.Ping(); err != nil {
		dc.Logger.Errorf("Error pinging %s MySQL engine: %v", dc.Label, err)
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s MySQL engine: %s@%s:%s/%s", dc.Label, dc.User, dc.Host, dc.Port, dc.Schema)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		if err := dc.DB.Close(); err != nil {
			dc.Logger.Errorf("Error closing %s connection: %v", dc.Label, err)
		} else {
			dc.Logger.Infof("%s MySQL connection closed", dc.Label)
		}
	}
}

// Ping verifies the engine is still reachable. Used after a table-level
// failure to decide whether the failure was connection-level.
func (dc *DatabaseConnector) Ping() error {
	if dc.DB == nil {
		return fmt.Errorf("%s: not connected", dc.Label)
	}
	return dc.DB.Ping()
}

// AcquireSession pins a single connection from the pool. LOCK TABLES and
// user variables are session-scoped, so every statement between a lock and
// its UNLOCK TABLES must run on the same connection.
func (dc *DatabaseConnector) AcquireSession() (*sql.Conn, error) {
	if dc.DB == nil {
		return nil, fmt.Errorf("%s: not connected", dc.Label)
	}
	return dc.DB.Conn(context.Background())
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	if dc.DB == nil {
		return 0, fmt.Errorf("%s: not connected", dc.Label)
	}

	result, err := dc.DB.Exec(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement on %s: %v", dc.Label, err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return affected, nil
}

// QuoteIdentifier backtick-quotes a MySQL identifier. All DDL and lock
// statements are built through this single function so that quoting is not
// scattered through the codebase.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
