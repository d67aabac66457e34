package main

import (
	"context"

	"github.com/go-go-golems/chatmemory/pkg/chat"
	"github.com/go-go-golems/chatmemory/pkg/config"
	"github.com/go-go-golems/chatmemory/pkg/events"
	"github.com/go-go-golems/chatmemory/pkg/history"
	"github.com/go-go-golems/chatmemory/pkg/inference"
	"github.com/go-go-golems/chatmemory/pkg/inference/factory"
	"github.com/go-go-golems/chatmemory/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// engineFactory is swapped out in tests.
var engineFactory factory.EngineFactory = factory.NewStandardEngineFactory()

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	store, err := history.Open(ctx, settings.History)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not close history store")
		}
	}()

	engine, err := engineFactory.CreateEngine(settings)
	if err != nil {
		return errors.Wrap(err, "could not create inference engine")
	}

	// the marker is only touched once the store and engine are usable
	resolver := session.NewResolver(afero.NewOsFs(), settings.SessionFile)
	newSession, err := cmd.Flags().GetBool("new-session")
	if err != nil {
		return err
	}
	if newSession {
		if err := resolver.Reset(); err != nil {
			return err
		}
	}
	resolution, err := resolver.Resolve()
	if err != nil {
		return err
	}

	return runLoop(ctx, cmd, store, engine, resolution, settings)
}

func runLoop(
	ctx context.Context,
	cmd *cobra.Command,
	store chat.TurnStore,
	engine inference.Engine,
	resolution session.Resolution,
	settings *config.Settings,
) error {
	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return errors.Wrap(err, "could not create event router")
	}
	defer func() {
		_ = router.Close()
	}()
	router.AddHandler("log", events.TopicChat, router.LogEvents)

	options := []chat.ControllerOption{
		chat.WithHistoryWindow(settings.HistoryWindow),
		chat.WithEventSink(router.Sink(events.TopicChat)),
	}
	if viper.GetBool("markdown") {
		format, err := newMarkdownFormatter(cmd.OutOrStdout(), viper.GetInt("word-wrap"))
		if err != nil {
			return err
		}
		if format != nil {
			options = append(options, chat.WithReplyFormatter(format))
		}
	}

	controller, err := chat.NewController(
		store, engine,
		chat.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout()),
		resolution.SessionID,
		options...,
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})

	eg.Go(func() error {
		defer cancel()
		select {
		case <-router.Running():
		case <-ctx.Done():
			return ctx.Err()
		}

		controller.Greeting(resolution)

		// reading stdin cannot be interrupted, so an interrupt abandons the loop
		done := make(chan error, 1)
		go func() {
			done <- controller.Run(ctx)
		}()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	return eg.Wait()
}
