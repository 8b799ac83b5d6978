package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-table-syncer/internal/catalog"
	"github.com/vitebski/mysql-table-syncer/internal/config"
	"github.com/vitebski/mysql-table-syncer/internal/connector"
	"github.com/vitebski/mysql-table-syncer/internal/detector"
	"github.com/vitebski/mysql-table-syncer/internal/ledger"
	"github.com/vitebski/mysql-table-syncer/internal/syncer"
	"github.com/vitebski/mysql-table-syncer/internal/transfer"
	"github.com/vitebski/mysql-table-syncer/internal/utils"
)

func main() {
	var (
		sourceHost     string
		sourceUser     string
		sourcePassword string
		sourcePort     string
		targetHost     string
		targetUser     string
		targetPassword string
		targetPort     string
		schema         string
		targetSchema   string
		byTimestamp    bool
		byRowCount     bool
		byChecksum     bool
		workDir        string
		keepArtifacts  bool
		dryRun         bool
		tableFilter    string
		envFile        string
		logLevel       string
		logFile        string
	)

	rootCmd := &cobra.Command{
		Use:   "mysql-table-syncer",
		Short: "A tool to synchronize MySQL tables from a source schema to a target schema",
		Long: `MySQL Table Syncer

A Go tool that synchronizes the tables of a MySQL schema from a source engine
to a target engine. Per table it decides whether the target copy has diverged
(by timestamp, row count, or checksum), and rebuilds diverged tables from
scratch: drop, re-create from the source definition, export under a read lock,
bulk-load under a write lock. An append-only ledger of completed tables makes
rerunning the same campaign cheap and crash-safe; delete a line from the
ledger to force that table to transfer again.`,
		Run: func(cmd *cobra.Command, args []string) {
			// Setup logging
			logger := utils.SetupLogging(logLevel, logFile)

			// Load environment variables
			utils.LoadEnvironmentVariables(envFile, logger)

			// Fill connection parameters from environment if not provided
			if sourceHost == "" {
				sourceHost = utils.GetEnvOrDefault("SOURCE_MYSQL_HOST", "localhost")
			}
			if sourceUser == "" {
				sourceUser = utils.GetEnvOrDefault("SOURCE_MYSQL_USER", "root")
			}
			if sourcePassword == "" {
				sourcePassword = os.Getenv("SOURCE_MYSQL_PASSWORD")
			}
			if sourcePort == "" {
				sourcePort = utils.GetEnvOrDefault("SOURCE_MYSQL_PORT", "3306")
			}
			if targetHost == "" {
				targetHost = utils.GetEnvOrDefault("TARGET_MYSQL_HOST", "localhost")
			}
			if targetUser == "" {
				targetUser = utils.GetEnvOrDefault("TARGET_MYSQL_USER", "root")
			}
			if targetPassword == "" {
				targetPassword = os.Getenv("TARGET_MYSQL_PASSWORD")
			}
			if targetPort == "" {
				targetPort = utils.GetEnvOrDefault("TARGET_MYSQL_PORT", "3306")
			}
			if schema == "" {
				schema = os.Getenv("SYNC_SCHEMA")
			}
			if targetSchema == "" {
				// The target schema usually carries the same name.
				targetSchema = utils.GetEnvOrDefault("SYNC_TARGET_SCHEMA", schema)
			}
			if workDir == "" {
				workDir = utils.GetEnvOrDefault("SYNC_WORKDIR", ".")
			}

			// Resolve the divergence strategy; exactly one must be chosen.
			strategy, err := config.SelectStrategy(byTimestamp, byRowCount, byChecksum, os.Getenv("SYNC_STRATEGY"))
			if err != nil {
				logger.Errorf("%v", err)
				os.Exit(1)
			}

			var tables []string
			if tableFilter != "" {
				for _, name := range strings.Split(tableFilter, ",") {
					if name = strings.TrimSpace(name); name != "" {
						tables = append(tables, name)
					}
				}
			}

			cfg := &config.Config{
				Source: config.Endpoint{
					Host:     sourceHost,
					Port:     sourcePort,
					User:     sourceUser,
					Password: sourcePassword,
					Schema:   schema,
				},
				Target: config.Endpoint{
					Host:     targetHost,
					Port:     targetPort,
					User:     targetUser,
					Password: targetPassword,
					Schema:   targetSchema,
				},
				Strategy:      strategy,
				WorkDir:       workDir,
				KeepArtifacts: keepArtifacts,
				DryRun:        dryRun,
				Tables:        tables,
			}

			// Validate configuration before any engine call
			if err := cfg.Validate(); err != nil {
				logger.Errorf("%v", err)
				os.Exit(1)
			}

			// Connect both sides up front; an unreachable engine aborts the
			// run before any table work starts.
			source := connector.NewDatabaseConnector("source",
				cfg.Source.Host, cfg.Source.User, cfg.Source.Password, cfg.Source.Schema, cfg.Source.Port, logger)
			if err := source.Connect(); err != nil {
				logger.Errorf("Failed to connect to source engine: %v", err)
				os.Exit(1)
			}
			defer source.Disconnect()

			target := connector.NewDatabaseConnector("target",
				cfg.Target.Host, cfg.Target.User, cfg.Target.Password, cfg.Target.Schema, cfg.Target.Port, logger)
			if err := target.Connect(); err != nil {
				logger.Errorf("Failed to connect to target engine: %v", err)
				os.Exit(1)
			}
			defer target.Disconnect()

			// Create catalog readers
			sourceCatalog := catalog.NewReader(source, logger)
			targetCatalog := catalog.NewReader(target, logger)

			// Create divergence detector
			det, err := detector.NewDetector(cfg.Strategy, sourceCatalog, targetCatalog, logger)
			if err != nil {
				logger.Errorf("%v", err)
				os.Exit(1)
			}

			// Load the resumability ledger
			ldg := ledger.New(cfg.WorkDir, logger)
			if err := ldg.Load(); err != nil {
				logger.Errorf("Failed to load ledger: %v", err)
				os.Exit(1)
			}
			defer ldg.Close()

			// Create transfer orchestrator
			orchestrator := transfer.NewOrchestrator(
				source, target, sourceCatalog, ldg, cfg.WorkDir, cfg.KeepArtifacts, logger)

			// Run the synchronization
			tableSyncer := syncer.NewTableSyncer(
				source, target, sourceCatalog, targetCatalog, det, orchestrator, ldg,
				cfg.DryRun, cfg.Tables, logger)

			summary, err := tableSyncer.Run()
			utils.PrintSummary(summary, cfg.Strategy, cfg.DryRun)

			if err != nil {
				logger.Errorf("Run aborted: %v", err)
				os.Exit(1)
			}
			if !summary.OK() {
				os.Exit(1)
			}
		},
	}

	// Define flags
	rootCmd.Flags().StringVar(&sourceHost, "source-host", "", "Source MySQL host (default: localhost)")
	rootCmd.Flags().StringVar(&sourceUser, "source-user", "", "Source MySQL user (default: root)")
	rootCmd.Flags().StringVar(&sourcePassword, "source-password", "", "Source MySQL password")
	rootCmd.Flags().StringVar(&sourcePort, "source-port", "", "Source MySQL port (default: 3306)")
	rootCmd.Flags().StringVar(&targetHost, "target-host", "", "Target MySQL host (default: localhost)")
	rootCmd.Flags().StringVar(&targetUser, "target-user", "", "Target MySQL user (default: root)")
	rootCmd.Flags().StringVar(&targetPassword, "target-password", "", "Target MySQL password")
	rootCmd.Flags().StringVar(&targetPort, "target-port", "", "Target MySQL port (default: 3306)")
	rootCmd.Flags().StringVarP(&schema, "schema", "d", "", "Schema name to synchronize")
	rootCmd.Flags().StringVar(&targetSchema, "target-schema", "", "Target schema name (default: same as --schema)")
	rootCmd.Flags().BoolVar(&byTimestamp, "timestamp", false, "Refresh tables whose source last-modified timestamp is newer")
	rootCmd.Flags().BoolVar(&byRowCount, "rowcount", false, "Refresh tables whose approximate row counts differ")
	rootCmd.Flags().BoolVar(&byChecksum, "checksum", false, "Refresh tables whose extended table checksums differ")
	rootCmd.Flags().StringVarP(&workDir, "workdir", "w", "", "Working directory for artifacts and the ledger (default: .)")
	rootCmd.Flags().BoolVar(&keepArtifacts, "keep-artifacts", false, "Keep export artifacts after a successful import")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report which tables would be refreshed without transferring anything")
	rootCmd.Flags().StringVarP(&tableFilter, "tables", "t", "", "Comma-separated list of tables to consider (default: all)")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Mirror logs to this file with rotation")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
