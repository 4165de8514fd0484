package logger

import (
	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// Integrity логирует рассинхронизацию двухзаписной операции с максимальной
// важностью. Такие записи разбирает оператор вручную.
func Integrity(fields logrus.Fields, msg string) {
	if Log == nil {
		return
	}
	fields["severity"] = "critical"
	Log.WithFields(fields).Error(msg)
}
