package logger

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

type cronLogger struct {
	logger Logger
}

// NewCronLogger bridges robfig/cron logging into a Logger.
// Info level cron chatter (wake, run, schedule) is logged at debug.
func NewCronLogger(l Logger) cron.Logger {
	return &cronLogger{logger: l}
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.WithFields(kvToFields(keysAndValues)).Debug("cron: " + msg)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvToFields(keysAndValues)
	if err != nil {
		fields["error"] = err.Error()
	}
	c.logger.WithFields(fields).Error("cron: " + msg)
}

func kvToFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	if len(keysAndValues)%2 == 1 {
		fields["extra"] = keysAndValues[len(keysAndValues)-1]
	}
	return fields
}
