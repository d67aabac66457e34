package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// ZerologLoggerAdapter routes watermill's logging into zerolog.
type ZerologLoggerAdapter struct {
	logger zerolog.Logger
}

func NewZerologLoggerAdapter(logger zerolog.Logger) *ZerologLoggerAdapter {
	return &ZerologLoggerAdapter{logger: logger}
}

func (z *ZerologLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	z.logger.Error().Fields(map[string]interface{}(fields)).Err(err).Msg(msg)
}

// Info is logged at debug, watermill is chatty.
func (z *ZerologLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	z.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (z *ZerologLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	z.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (z *ZerologLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	z.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (z *ZerologLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &ZerologLoggerAdapter{
		logger: z.logger.With().Fields(map[string]interface{}(fields)).Logger(),
	}
}

var _ watermill.LoggerAdapter = (*ZerologLoggerAdapter)(nil)
