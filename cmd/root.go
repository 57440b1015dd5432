// Package cmd contains the CLI setup and commands exposed to the operator
package cmd

import (
	"fmt"
	"log"

	"github.com/hubchat/server/configs"
	"github.com/spf13/cobra"
)

var ConfigFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hubchat-server",
	Short: "Self-hosted chat server with persistent channels and WebRTC call signaling",
	Long:  ``,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err.Error())
	}
}

func init() {
	// deferring this allows user to override config path with cli option
	cobra.OnInitialize(func() {
		log.Printf("using config file: %s", ConfigFile)
		configs.InitConfig(ConfigFile)
	})

	configDir := configs.GetConfigDir()
	defaultConfigFilePath := fmt.Sprintf("%s/hubchat-server.toml", configDir)
	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", defaultConfigFilePath, "config file")
}
