package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// newMarkdownFormatter renders replies as terminal markdown. It returns nil
// when out is not a terminal, in which case replies are printed as is.
func newMarkdownFormatter(out io.Writer, wordWrap int) (func(string) string, error) {
	f, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, errors.Wrap(err, "could not create markdown renderer")
	}

	return func(s string) string {
		rendered, err := renderer.Render(s)
		if err != nil {
			log.Warn().Err(err).Msg("could not render reply as markdown")
			return s
		}
		return strings.Trim(rendered, "\n")
	}, nil
}
