package log

import (
	"fmt"

	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type whatsmeowLogger struct {
	entry *logrus.Entry
}

// WhatsMeow adapts the shared logrus logger to the whatsmeow logging interface.
func WhatsMeow(module string) waLog.Logger {
	return &whatsmeowLogger{entry: logger.WithField("module", module)}
}

func (l *whatsmeowLogger) Warnf(msg string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(msg, args...))
}

func (l *whatsmeowLogger) Errorf(msg string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(msg, args...))
}

func (l *whatsmeowLogger) Infof(msg string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(msg, args...))
}

func (l *whatsmeowLogger) Debugf(msg string, args ...interface{}) {
	if !l.entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	l.entry.Debug(fmt.Sprintf(msg, args...))
}

func (l *whatsmeowLogger) Sub(module string) waLog.Logger {
	current, _ := l.entry.Data["module"].(string)
	if current != "" {
		module = current + "/" + module
	}
	return &whatsmeowLogger{entry: l.entry.WithField("module", module)}
}
