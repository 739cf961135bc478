package httpclient

import (
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// zapLeveled adapts a zap.SugaredLogger to retryablehttp.LeveledLogger.
// retryablehttp reports individual attempt failures at Error; they are
// logged at Warn since the call may still succeed.
type zapLeveled struct {
	s *zap.SugaredLogger
}

var _ retryablehttp.LeveledLogger = zapLeveled{}

func newLeveled(l *zap.Logger) zapLeveled {
	return zapLeveled{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z zapLeveled) Error(msg string, kv ...interface{}) { z.s.Warnw(msg, kv...) }
func (z zapLeveled) Info(msg string, kv ...interface{})  { z.s.Infow(msg, kv...) }
func (z zapLeveled) Debug(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z zapLeveled) Warn(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
