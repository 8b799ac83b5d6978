package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileName is the ledger's name inside the working directory.
const FileName = "synced_tables.log"

// Ledger is the durable record of tables already fully transferred in the
// current campaign. The file is the source of truth: one table name per line,
// appended after each successful import, never rewritten or truncated. The
// in-memory set is rebuilt from it at startup and used purely as a
// skip-filter. Deleting a line from the file is the documented way to force
// a retransfer on the next run.
type Ledger struct {
	Path   string
	Logger *logrus.Logger

	file      *os.File
	completed map[string]bool
}

// New creates a ledger backed by the standard file in workDir.
func New(workDir string, logger *logrus.Logger) *Ledger {
	return &Ledger{
		Path:      filepath.Join(workDir, FileName),
		Logger:    logger,
		completed: make(map[string]bool),
	}
}

// Load replays every entry of the persisted log in order and opens the file
// for appending. A missing file means a fresh campaign.
func (l *Ledger) Load() error {
	file, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", l.Path, err)
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		l.completed[name] = true
	}
	if err := scanner.Err(); err != nil {
		file.Close()
		return fmt.Errorf("reading ledger %s: %w", l.Path, err)
	}

	l.file = file
	if len(l.completed) > 0 {
		l.Logger.Infof("Ledger %s: %d tables already completed in this campaign", l.Path, len(l.completed))
	}
	return nil
}

// Contains reports whether table finished a full transfer in this campaign.
func (l *Ledger) Contains(table string) bool {
	return l.completed[table]
}

// Completed returns how many tables the ledger records.
func (l *Ledger) Completed() int {
	return len(l.completed)
}

// Append records one fully transferred table. The write is fsynced before
// returning so a crash immediately after cannot lose the record of a table
// that actually finished.
func (l *Ledger) Append(table string) error {
	if l.file == nil {
		return fmt.Errorf("ledger not loaded")
	}
	if l.completed[table] {
		return fmt.Errorf("table %s already recorded in ledger", table)
	}

	if _, err := fmt.Fprintln(l.file, table); err != nil {
		return fmt.Errorf("appending %s to ledger: %w", table, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing ledger after %s: %w", table, err)
	}

	l.completed[table] = true
	return nil
}

// Close releases the underlying file. The completed set stays readable.
func (l *Ledger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
