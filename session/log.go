package session

import (
	"github.com/drake/hostbridge/timer"
	"go.uber.org/zap"
)

func lfdToken(tok timer.Token) zap.Field {
	return zap.Uint64("token", uint64(tok))
}

func lfdScript(path string) zap.Field {
	return zap.String("script", path)
}

func lfdFuture(id uint64) zap.Field {
	return zap.Uint64("future", id)
}

// rejectionLogger makes unhandled rejections and misbehaving host callbacks
// visible in the session log.
type rejectionLogger struct {
	logger *zap.Logger
}

func (r *rejectionLogger) UnhandledRejection(id uint64, err error) {
	r.logger.Warn("unhandled rejection", lfdFuture(id), zap.Error(err))
}

func (r *rejectionLogger) RejectionHandled(id uint64) {
	r.logger.Debug("rejection handled late", lfdFuture(id))
}

func (r *rejectionLogger) ExtraSettlement(id uint64, err error) {
	r.logger.Error("host completed a future more than once", lfdFuture(id), zap.Error(err))
}
