package config

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// for Log

func initLogrus() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		TimestampFormat: time.DateTime,
	})
	if Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// PathDiag is the local diagnostic channel: swallowed telemetry errors and
// export failures end up here, never in the handler's output.
const PathDiag = "/tmp/faasprofiler_diag.log.json"

var LogDiag = initLog4(PathDiag)

func initLog4(path string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.DateTime,
	})
	tmpLog, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		// no writable diagnostic file: the channel goes dark, the invocation
		// proceeds
		logger.SetOutput(io.Discard)
		return logger
	}
	logger.SetOutput(tmpLog)
	return logger
}

func init() {
	initLogrus()
}
