package logger

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewEchoRequestLogger는 zap으로 HTTP 요청/응답을 기록하는 미들웨어를 생성합니다.
// /health 요청은 제외되며 Authorization, 웹훅 서명 헤더는 마스킹됩니다.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		HandleError:   true,
		LogLatency:    true,
		LogRemoteIP:   true,
		LogMethod:     true,
		LogURI:        true,
		LogRoutePath:  true,
		LogRequestID:  true,
		LogUserAgent:  true,
		LogStatus:     true,
		LogError:      true,
		LogHeaders:    []string{"Authorization", "X-Webhook-Signature"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
			}

			headers := make(map[string]string, len(v.Headers))
			for k, values := range v.Headers {
				if len(values) > 0 {
					headers[k] = mask(values[0])
				}
			}
			if len(headers) > 0 {
				fields = append(fields, zap.Any("request.headers", headers))
			}

			switch {
			case v.Error != nil:
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= 500:
				logger.Error("Server error", fields...)
			case v.Status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

func mask(val string) string {
	if len(val) > 15 {
		return val[:10] + "..." + val[len(val)-5:]
	}
	return "[MASKED]"
}

// WithEchoLogger는 Echo 내장 로거를 zap으로 교체하고 에러 핸들러를 설정합니다.
// echo.HTTPError의 Message가 맵이면 그대로 응답 본문으로 사용합니다.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var body interface{} = echo.Map{"error": http.StatusText(code)}

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			switch msg := he.Message.(type) {
			case echo.Map:
				body = msg
			case string:
				body = echo.Map{"error": msg}
			default:
				body = echo.Map{"error": http.StatusText(code)}
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}

		if code >= 500 {
			logger.Error("HTTP error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// EchoZapLogger는 echo.Logger 인터페이스를 구현한 zap 래퍼입니다.
// Debug/Info/Warn/Error 계열은 SugaredLogger를 그대로 사용합니다.
type EchoZapLogger struct {
	*zap.SugaredLogger
	base   *zap.Logger
	prefix string
}

// NewEchoZapLogger는 Echo Logger 인터페이스를 구현한 zap 래퍼를 생성합니다.
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{SugaredLogger: logger.Sugar(), base: logger}
}

func (l *EchoZapLogger) Output() io.Writer { return &zapWriter{logger: l.base} }

// SetOutput은 zap에서 출력 대상을 바꿀 수 없으므로 무시합니다.
func (l *EchoZapLogger) SetOutput(io.Writer) {}

func (l *EchoZapLogger) Prefix() string { return l.prefix }

func (l *EchoZapLogger) SetPrefix(p string) { l.prefix = p }

// SetHeader는 무시됩니다.
func (l *EchoZapLogger) SetHeader(string) {}

// Level은 zap 코어에서 활성화된 가장 낮은 레벨을 gommon 레벨로 반환합니다.
func (l *EchoZapLogger) Level() log.Lvl {
	core := l.base.Core()
	switch {
	case core.Enabled(zapcore.DebugLevel):
		return log.DEBUG
	case core.Enabled(zapcore.InfoLevel):
		return log.INFO
	case core.Enabled(zapcore.WarnLevel):
		return log.WARN
	case core.Enabled(zapcore.ErrorLevel):
		return log.ERROR
	default:
		return log.OFF
	}
}

// SetLevel은 무시됩니다. 레벨은 zap 설정으로 제어합니다.
func (l *EchoZapLogger) SetLevel(log.Lvl) {}

func (l *EchoZapLogger) Print(i ...interface{}) { l.SugaredLogger.Info(i...) }

func (l *EchoZapLogger) Printf(format string, args ...interface{}) {
	l.SugaredLogger.Infof(format, args...)
}

func (l *EchoZapLogger) Printj(j log.JSON) { l.base.Info("echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Debugj(j log.JSON) { l.base.Debug("echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Infoj(j log.JSON) { l.base.Info("echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Warnj(j log.JSON) { l.base.Warn("echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Errorj(j log.JSON) { l.base.Error("echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Fatalj(j log.JSON) { l.base.Fatal("echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Panicj(j log.JSON) { l.base.Panic("echo", zap.Any("json", j)) }

type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(p))
	return len(p), nil
}
