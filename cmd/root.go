package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:   "db-graph",
	Short: "Database dependency graph and documentation tool",
	Long: `
     _ _                                 _
  __| | |__        __ _ _ __ __ _ _ __ | |__
 / _' | '_ \ ___ / _' | '__/ _' | '_ \| '_ \
| (_| | |_) |___| (_| | | | (_| | |_) | | | |
 \__,_|_.__/     \__, |_|  \__,_| .__/|_| |_|
                 |___/          |_|

Reads the foreign keys of a schema, breaks reference cycles and reports the order
in which tables can be filled and emptied.
`,
	SilenceUsage: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./db-graph.yaml)")
	flags.String("driver", "", "database/sql driver: mysql, postgres, pgx, sqlserver, oracle, sqlite")
	flags.String("dsn", "", "Database Source Name (DSN); overrides the active database in the config file")
	flags.String("schema", "", "schema to document (default: the connection's current schema)")

	viper.BindPFlag("database.driver", flags.Lookup("driver"))
	viper.BindPFlag("database.dsn", flags.Lookup("dsn"))
	viper.BindPFlag("database.schema", flags.Lookup("schema"))

	viper.SetDefault("settings.output", "db-graph-out")
	viper.SetDefault("settings.timeout", 30*time.Second)
	viper.SetDefault("settings.workers", runtime.NumCPU())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-graph")
		viper.SetConfigType("yaml")
	}

	// DBGRAPH_DATABASE_DSN, DBGRAPH_SETTINGS_OUTPUT, ...
	viper.SetEnvPrefix("DBGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
