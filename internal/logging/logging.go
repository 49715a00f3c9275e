package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New собирает логгер процесса: текстовый формат с полной меткой
// времени, уровень из конфигурации, при заданном файле - ротация
// через lumberjack с дублированием в stdout.
func New(level, logFile string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // мегабайты
			MaxBackups: 3,
			MaxAge:     28, // дни
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotating))
	}

	return logger
}
