package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

// SetupLogging configures the logging system. With a log file the output is
// mirrored to stdout and a size-rotated file; otherwise stdout only.
func SetupLogging(logLevel, logFile string) *logrus.Logger {
	logger := logrus.New()

	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("SYNC_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotated))
	} else {
		logger.SetOutput(os.Stdout)
	}

	logger.Infof("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Infof("No %s file found, using existing environment variables", envFile)
	}

	requiredVars := []string{
		"SOURCE_MYSQL_HOST", "SOURCE_MYSQL_USER", "SOURCE_MYSQL_PASSWORD",
		"TARGET_MYSQL_HOST", "TARGET_MYSQL_USER", "TARGET_MYSQL_PASSWORD",
		"SYNC_SCHEMA",
	}
	var missingVars []string

	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Debugf("Environment variables not set: %s", strings.Join(missingVars, ", "))
		logger.Debug("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	return true
}

// GetEnvOrDefault gets an environment variable or returns a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// PrintSummary prints the outcome of one sync run. Together with the exit
// code and the ledger contents it is the run's audit trail.
func PrintSummary(summary models.RunSummary, strategy models.Strategy, dryRun bool) {
	title := "TABLE SYNCHRONIZATION SUMMARY"
	if dryRun {
		title = "TABLE SYNCHRONIZATION SUMMARY (DRY RUN)"
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Divergence strategy: %s\n", strategy)
	fmt.Printf("Tables transferred: %d\n", len(summary.Transferred))
	fmt.Printf("Tables skipped via ledger: %d\n", len(summary.SkippedLedger))
	fmt.Printf("Tables already in sync: %d\n", len(summary.InSync))
	fmt.Printf("Tables failed: %d\n", len(summary.Failed))

	if len(summary.Transferred) > 0 {
		fmt.Println("\nTransferred tables:")
		for _, table := range summary.Transferred {
			fmt.Printf("  - %s\n", table)
		}
	}

	if len(summary.Failed) > 0 {
		fmt.Println("\nFailed tables:")
		for _, table := range summary.Failed {
			fmt.Printf("  - %s\n", table)
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}
