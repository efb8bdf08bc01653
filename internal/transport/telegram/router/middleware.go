package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	logx "ridebot/pkg/logx"
)

// HandlerFunc serves one routed update.
type HandlerFunc func(ctx context.Context, req *Request) error

// Middleware wraps a HandlerFunc. The first middleware given to Chain is
// the outermost.
type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// slowRequest is the duration from which successful requests log at INFO.
const slowRequest = 750 * time.Millisecond

func MWTimeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next HandlerFunc) HandlerFunc { return next }
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

// MWPanicRecover turns a handler panic into an error so one bad update
// cannot kill its chat's worker.
func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				requestLogger(log, req).Error("handler panicked",
					logx.String("handler", req.Command),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("%s: panic: %v", req.Command, r)
			}()
			return next(ctx, req)
		}
	}
}

// MWRequestLog logs one line per update with its payload kind.
func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			took := time.Since(start)

			logger := requestLogger(log, req)
			fields := []logx.Field{
				logx.String("handler", req.Command),
				logx.String("payload", payloadKind(req)),
				logx.Duration("dur", took),
			}
			switch {
			case err != nil:
				logger.Warn("update failed", append(fields, logx.Err(err))...)
			case took >= slowRequest:
				logger.Info("update handled (slow)", fields...)
			default:
				logger.Debug("update handled", fields...)
			}
			return err
		}
	}
}

func requestLogger(fallback logx.Logger, req *Request) logx.Logger {
	if req != nil && !req.Logger.IsZero() {
		return req.Logger
	}
	return fallback
}

// payloadKind names what the user sent: text, contact, location or callback.
func payloadKind(req *Request) string {
	up := req.Update
	switch {
	case up.Callback != nil:
		return "callback"
	case up.Message == nil:
		return string(up.Kind)
	case up.Message.Contact != nil:
		return "contact"
	case up.Message.Location != nil:
		return "location"
	}
	return "text"
}
