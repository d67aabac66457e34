package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-go-golems/chatmemory/pkg/config"
	"github.com/go-go-golems/chatmemory/pkg/doc"
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/help"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "chatmemory is a terminal chatbot that remembers conversations across runs",
		Long: "chatmemory reads lines from stdin, answers them with a local language model and " +
			"stores every turn so the next run resumes the same session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		RunE: runChat,
	}

	helpSystem := help.NewHelpSystem()
	if err := doc.AddDocToHelpSystem(helpSystem); err != nil {
		return nil, err
	}
	helpFunc, usageFunc := help.GetCobraHelpUsageFuncs(helpSystem)
	helpTemplate, usageTemplate := help.GetCobraHelpUsageTemplates(helpSystem)
	rootCmd.SetHelpFunc(helpFunc)
	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetHelpTemplate(helpTemplate)
	rootCmd.SetUsageTemplate(usageTemplate)
	rootCmd.SetHelpCommand(help.NewCobraHelpCommand(helpSystem))

	// adds --config and the --log-* flags, and searches
	// $HOME/.chatmemory/config.yaml and /etc/chatmemory/config.yaml
	if err := clay.InitViper(config.AppName, rootCmd); err != nil {
		return nil, errors.Wrap(err, "could not initialize config")
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading the configuration")
	rootCmd.PersistentFlags().Bool("verbose", false, "Debug logging, including the event bus")

	rootCmd.Flags().Bool("new-session", false, "Forget the current session marker and start a new session")
	rootCmd.Flags().Bool("markdown", false, "Render replies as markdown when stdout is a terminal")
	rootCmd.Flags().Int("word-wrap", 80, "Word wrap width for markdown replies")

	historyCmd, err := NewHistoryCommand()
	if err != nil {
		return nil, err
	}
	historyCobraCmd, err := cli.BuildCobraCommandFromGlazeCommand(historyCmd)
	if err != nil {
		return nil, err
	}
	rootCmd.AddCommand(historyCobraCmd)

	return rootCmd, nil
}

func initConfig(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	v := viper.GetViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "could not bind flags")
	}
	if err := config.BindEnvironment(v); err != nil {
		return err
	}
	// clay reads the config file before the flags are parsed
	if configPath := v.GetString("config"); configPath != "" {
		if err := config.ReadConfigFile(v, configPath); err != nil {
			return err
		}
	}

	if err := clay.InitLogger(); err != nil {
		return errors.Wrap(err, "could not initialize logger")
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("configuration loaded")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd, err := newRootCommand()
	if err == nil {
		err = rootCmd.ExecuteContext(ctx)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
