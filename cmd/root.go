package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	sourceDSN string
	chDSN     string

	SourceDB   *sql.DB
	DestDB     *sql.DB
	DriverName string // "mysql", "postgres", "sqlserver" or "oracle"
	SchemaName string
)

var RootCmd = &cobra.Command{
	Use:   "ch-pump",
	Short: "A relational-to-ClickHouse migration tool",
	Long: `
   ____ _   _   ____  _   _ __  __ ____
  / ___| | | | |  _ \| | | |  \/  |  _ \
 | |   | |_| | | |_) | | | | |\/| | |_) |
 | |___|  _  | |  __/| |_| | |  | |  __/
  \____|_| |_| |_|    \___/|_|  |_|_|

CH PUMP 🚚 - Schema Mapper & Batched Table Migrator
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Viper precedence: Flag > Config > Default
		srcStr := viper.GetString("source.dsn")
		if srcStr == "" {
			return fmt.Errorf("source.dsn is required (via flag or config)")
		}

		DriverName = viper.GetString("source.driver")
		if DriverName == "" {
			DriverName = detectDriver(srcStr)
		}

		var err error
		SourceDB, err = sql.Open(DriverName, srcStr)
		if err != nil {
			return fmt.Errorf("failed to open source db: %w", err)
		}
		if err := SourceDB.Ping(); err != nil {
			return fmt.Errorf("failed to connect to source db: %w", err)
		}

		// Fetch the current database/schema name for introspection queries.
		switch DriverName {
		case "mysql":
			if err := SourceDB.QueryRow("SELECT DATABASE()").Scan(&SchemaName); err != nil {
				return fmt.Errorf("failed to get database name: %w", err)
			}
			if SchemaName == "" {
				return fmt.Errorf("no database selected in source DSN")
			}
		case "sqlserver", "mssql":
			SchemaName = "dbo"
		case "oracle":
			SchemaName = "" // session user's own schema
		default:
			SchemaName = "public"
		}

		chStr := viper.GetString("clickhouse.dsn")
		if chStr == "" {
			return fmt.Errorf("clickhouse.dsn is required (via flag or config)")
		}
		DestDB, err = sql.Open("clickhouse", chStr)
		if err != nil {
			return fmt.Errorf("failed to open clickhouse: %w", err)
		}
		if err := DestDB.Ping(); err != nil {
			return fmt.Errorf("failed to connect to clickhouse: %w", err)
		}

		return nil
	},
}

func detectDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.Contains(dsn, "sslmode"):
		return "postgres"
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(dsn, "oracle://"):
		return "oracle"
	default:
		return "mysql"
	}
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ch-pump.yaml)")
	RootCmd.PersistentFlags().StringVar(&sourceDSN, "source-dsn", "", "source database DSN")
	RootCmd.PersistentFlags().StringVar(&chDSN, "clickhouse-dsn", "", "ClickHouse DSN")

	viper.BindPFlag("source.dsn", RootCmd.PersistentFlags().Lookup("source-dsn"))
	viper.BindPFlag("clickhouse.dsn", RootCmd.PersistentFlags().Lookup("clickhouse-dsn"))

	viper.SetDefault("clickhouse.dsn", "clickhouse://127.0.0.1:9000/default")
	viper.SetDefault("settings.batch_size", 1000)
	viper.SetDefault("settings.skip_existing_tables", false)
	viper.SetDefault("settings.auto_recreate_table", false)
	viper.SetDefault("settings.enable_validation", true)
	viper.SetDefault("settings.validation_sample_size", 100)
	viper.SetDefault("settings.write_retries", 3)
	viper.SetDefault("settings.retry_backoff", "500ms")
	viper.SetDefault("settings.max_row_error_rate", 0.05)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("ch-pump")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
