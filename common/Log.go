package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

func init() {
	ConfigureLogger(logrus.StandardLogger())
}

// ConfigureLogger applies the service log format to logger. LOG_FORMAT=json selects the json formatter.
func ConfigureLogger(logger *logrus.Logger) {
	logger.Out = os.Stdout
	if os.Getenv("LOG_FORMAT") == "json" {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{}
	}
	logger.AddHook(&DefaultFieldsHook{})
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["serviceName"] = GetServiceName()
	e.Data["serviceInstance"] = GetServiceInstance()
	return nil
}

func GetServiceName() string {
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		return name
	}
	return "approvalflow"
}

func GetServiceInstance() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
