// Package cmd wires the Sidekick CLI together.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkarvala/sidekick-go/cmd/notify"
	"github.com/mkarvala/sidekick-go/cmd/replay"
	"github.com/mkarvala/sidekick-go/cmd/serve"
	"github.com/mkarvala/sidekick-go/internal/buildinfo"
	"github.com/mkarvala/sidekick-go/internal/conf"
)

// RootCommand creates and returns the root command with all subcommands
// registered.
func RootCommand(settings *conf.Settings) *cobra.Command {
	build := buildinfo.Get()
	rootCmd := &cobra.Command{
		Use:     "sidekick",
		Short:   "Sidekick assistant gateway CLI",
		Version: fmt.Sprintf("%s (built %s)", build.Version, build.BuildDate),
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		notify.Command(settings),
		replay.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Main.Debug, "debug", "d", viper.GetBool("main.debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Upstream.URL, "upstream", viper.GetString("upstream.url"), "Base URL of the assistant backend")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
