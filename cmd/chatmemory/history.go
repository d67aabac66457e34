package main

import (
	"context"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/config"
	"github.com/go-go-golems/chatmemory/pkg/history"
	"github.com/go-go-golems/chatmemory/pkg/session"
	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// HistoryCommand lists the stored turns of a session, one row per turn,
// without invoking the model.
type HistoryCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*HistoryCommand)(nil)

func NewHistoryCommand() (*HistoryCommand, error) {
	glazedLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}

	return &HistoryCommand{
		CommandDescription: cmds.NewCommandDescription(
			"history",
			cmds.WithShort("List the stored turns of a session"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"limit",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Maximum number of most recent turns to list"),
					parameters.WithDefault(history.DefaultHistoryWindow),
				),
				parameters.NewParameterDefinition(
					"session",
					parameters.ParameterTypeString,
					parameters.WithHelp("Session id (default: the one in the session marker)"),
					parameters.WithDefault(""),
				),
			),
			cmds.WithLayers(glazedLayer),
		),
	}, nil
}

func (c *HistoryCommand) Run(
	ctx context.Context,
	parsedLayers map[string]*layers.ParsedParameterLayer,
	ps map[string]interface{},
	gp middlewares.Processor,
) error {
	limit, ok := ps["limit"].(int)
	if !ok {
		return errors.New("limit flag is not an int")
	}
	sessionID, ok := ps["session"].(string)
	if !ok {
		return errors.New("session flag is not a string")
	}

	appSettings, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	ts, err := loadHistory(ctx, appSettings, sessionID, limit)
	if err != nil {
		return err
	}

	for _, t := range ts {
		if err := gp.AddRow(ctx, turnRow(t)); err != nil {
			return err
		}
	}
	return nil
}

// loadHistory fetches the most recent turns of sessionID, falling back to the
// session in the marker file when sessionID is empty.
func loadHistory(ctx context.Context, appSettings *config.Settings, sessionID string, limit int) ([]*turns.Turn, error) {
	if limit < 0 {
		return nil, errors.Errorf("limit must not be negative, got %d", limit)
	}

	if sessionID == "" {
		var err error
		sessionID, err = session.NewResolver(afero.NewOsFs(), appSettings.SessionFile).Current()
		if err != nil {
			return nil, err
		}
		if sessionID == "" {
			return nil, errors.Errorf("no session marker at %s, pass --session", appSettings.SessionFile)
		}
	}

	store, err := history.Open(ctx, appSettings.History)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not close history store")
		}
	}()

	return store.FetchRecent(ctx, sessionID, limit)
}

func turnRow(t *turns.Turn) types.Row {
	var model interface{}
	if t.Model != nil {
		model = *t.Model
	}
	return types.NewRow(
		types.MRP("session_id", t.SessionID),
		types.MRP("timestamp", t.Timestamp.UTC().Format(time.RFC3339Nano)),
		types.MRP("role", t.Role.String()),
		types.MRP("model", model),
		types.MRP("content", t.Content),
	)
}
