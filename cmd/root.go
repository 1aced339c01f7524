package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/beanboi7/chyp8/emu/config"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "chyp8 [command]",
	Short:         "Chip-8 emulator using Go",
	Long:          "A Chip-8 emulator written from scratch that mimics the functionalities of a Chip-8, an interpretted language originally written for the COSMAC VIP/ Telmac 8 bit systems.",
	Run:           Root,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Root(cmd *cobra.Command, args []string) {
	fmt.Println("Enter command as `chyp8 start /path/ROM`")
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chyp8.yaml)")
	flags.BoolP(config.KeyDebug, "d", false, "enable debug logging")
	flags.BoolP(config.KeyQuiet, "q", false, "only log errors")
	cobra.CheckErr(viper.BindPFlag(config.KeyDebug, flags.Lookup(config.KeyDebug)))
	cobra.CheckErr(viper.BindPFlag(config.KeyQuiet, flags.Lookup(config.KeyQuiet)))

	rootCmd.AddCommand(newStartCmd(viper.GetViper()))
}

// Execute runs the command line, version is shown by --version.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".chyp8" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".chyp8")
	}

	// CHYP8_CLOCK, CHYP8_QUIRKS_SHIFT, ...
	viper.SetEnvPrefix("chyp8")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
