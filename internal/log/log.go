package log

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Levels written into the "level" field. "audit" is not a zap level, so the
// level is carried as a plain field and zap's own level key is disabled.
const (
	LevelInfo  = "info"
	LevelAudit = "audit"
	LevelWarn  = "warn"
	LevelError = "error"
)

var current atomic.Pointer[zap.Logger]

func init() { SetOutput(os.Stdout) }

// SetOutput redirects every entry to w (file sink, multi-writer, test buffer).
func SetOutput(w io.Writer) {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "action",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapcore.DebugLevel)
	current.Store(zap.New(core))
}

// Logger exposes the underlying zap logger for startup messages.
func Logger() *zap.Logger { return current.Load() }

func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	zf := make([]zap.Field, 0, 9)
	zf = append(zf, zap.String("level", level))
	if c != nil {
		zf = append(zf,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		)
		if st := c.Response().StatusCode(); st != 0 {
			zf = append(zf, zap.Int("status", st))
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			zf = append(zf, zap.String("req_id", rid))
		}
		if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
			zf = append(zf, zap.String("user_id", uid))
		}
	}
	if err != nil {
		zf = append(zf, zap.String("err", err.Error()))
	}
	if len(fields) > 0 {
		zf = append(zf, zap.Any("fields", fields))
	}
	current.Load().Info(action, zf...)
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write(LevelInfo, c, action, nil, fields) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(LevelAudit, c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(LevelWarn, c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(LevelError, c, action, err, fields)
}

// Event logs outside a request (services, startup, background work).
func Event(level, action string, err error, fields map[string]any) {
	write(level, nil, action, err, fields)
}
