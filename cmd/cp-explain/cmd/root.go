// Package cmd implements cp-explain, which resolves counters offline from
// files and prints how every variable got its value.
package cmd

import (
	"fmt"
	"os"

	"github.com/alepiz/counterprocessor/logger"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cp-explain",
	Short: "Resolves counters offline and explains the result",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logger.Setup(viper.GetString("log-level"), "cp-explain"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	// config params used by >1 subcommands are listed here
	cfgFile string
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cp-explain.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warning", "log level. panic|fatal|error|warning|info|debug")
	rootCmd.PersistentFlags().String("records", "", "json file with the history per OCID: {\"101\": [{\"timestamp\": 1577836800000, \"data\": 5}]}")
	rootCmd.PersistentFlags().Int64("now", 0, "current time in ms since epoch the windows are relative to. 0 for the wall clock")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("records", rootCmd.PersistentFlags().Lookup("records"))
	viper.BindPFlag("now", rootCmd.PersistentFlags().Lookup("now"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".cp-explain")
	}

	viper.SetEnvPrefix("CP_EXPLAIN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file %s", viper.ConfigFileUsed())
	}
}
