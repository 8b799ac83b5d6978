package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the run loop and the exit path can tell
// apart problems that abort the whole run from problems isolated to one table.
type ErrorKind int

const (
	// ConfigError means the run never started: missing identifiers or an
	// ambiguous divergence strategy.
	ConfigError ErrorKind = iota
	// ConnectivityError means an engine is unreachable; the whole run aborts.
	ConnectivityError
	// MetadataError means a catalog query failed; inventory is foundational,
	// so the whole run aborts.
	MetadataError
	// TransferError means drop/create/export/import failed for one table;
	// the run continues with the next table.
	TransferError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigError:
		return "config"
	case ConnectivityError:
		return "connectivity"
	case MetadataError:
		return "metadata"
	case TransferError:
		return "transfer"
	default:
		return "unknown"
	}
}

// SyncError is the tagged error type carried through the whole pipeline.
// Table and Phase are set where applicable so the operator sees which table
// failed and in which state of its transfer.
type SyncError struct {
	Kind  ErrorKind
	Table string
	Phase TransferPhase
	Err   error
}

func (e *SyncError) Error() string {
	switch {
	case e.Table != "" && e.Kind == TransferError:
		return fmt.Sprintf("%s error: table %s, phase %s: %v", e.Kind, e.Table, e.Phase, e.Err)
	case e.Table != "":
		return fmt.Sprintf("%s error: table %s: %v", e.Kind, e.Table, e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewConfigError tags err as a configuration failure.
func NewConfigError(err error) *SyncError {
	return &SyncError{Kind: ConfigError, Err: err}
}

// NewConnectivityError tags err as an engine-unreachable failure.
func NewConnectivityError(err error) *SyncError {
	return &SyncError{Kind: ConnectivityError, Err: err}
}

// NewMetadataError tags err as a catalog query failure for table.
func NewMetadataError(table string, err error) *SyncError {
	return &SyncError{Kind: MetadataError, Table: table, Err: err}
}

// NewTransferError tags err as a transfer failure for table in phase.
func NewTransferError(table string, phase TransferPhase, err error) *SyncError {
	return &SyncError{Kind: TransferError, Table: table, Phase: phase, Err: err}
}

// KindOf extracts the error kind from err. Untagged errors are reported as
// transfer errors, the least fatal class.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return TransferError
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case ConfigError, ConnectivityError, MetadataError:
		return true
	default:
		return false
	}
}
