package log

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

// SetLevel changes the process-wide log level. Unknown names are ignored.
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return
	}
	logger.SetLevel(parsed)
}

// Logger exposes the underlying logrus instance, mainly for tests that need to
// capture output.
func Logger() *logrus.Logger {
	return logger
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	fields := logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	}
	if v := c.Locals("request_id"); v != nil {
		fields["request_id"] = v
	}
	return logger.WithFields(fields)
}

// GroupOp returns an entry tagged for a group directory operation.
func GroupOp(operation string, groupID string) *logrus.Entry {
	fields := logrus.Fields{
		"op": operation,
	}
	if groupID != "" {
		fields["group_id"] = groupID
	}
	return logger.WithFields(fields)
}

// SessionOp returns an entry tagged for a session lifecycle operation.
func SessionOp(operation string) *logrus.Entry {
	return logger.WithField("session_op", operation)
}
