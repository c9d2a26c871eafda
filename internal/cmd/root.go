package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sustainet/sustainet/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sustainet",
	Short: "A turn-based misinformation game for the terminal",
	Long: `Sustainet pits you against an AI that spreads misleading stories across
social platforms. Each round you clarify, agree with, or ignore the latest
story; a remote game server resolves the round and updates every platform's
trust. Win trust before the AI does.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/sustainet/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SUSTAINET")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SUSTAINET_RESOLVER_BASE_URL for resolver.base_url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
