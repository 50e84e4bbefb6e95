// Copyright 2024 The Dataforge Authors <dev@dataforge.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/dataforge/dataforge/utils"
)

var log = logrus.WithField("component", "cmd")

const (
	logFormatText = "text"
	logFormatJSON = "json"
)

const logLevelOff = "off"

var logLevels = []string{
	logrus.TraceLevel.String(),
	logrus.DebugLevel.String(),
	logrus.InfoLevel.String(),
	logrus.WarnLevel.String(),
	logrus.ErrorLevel.String(),
	logLevelOff,
}

// configureLog applies the services logging settings. A file output always
// uses the json format, whatever the format setting says.
func configureLog(cfg *viper.Viper) error {
	if err := applyLogLevel(cfg.GetString(servicesLogLevelKey)); err != nil {
		return err
	}

	if cfg.IsSet(servicesLogFileKey) {
		path := cfg.GetString(servicesLogFileKey)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("unable to open log file %q: %w", path, err)
		}
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetOutput(file)
		log.WithField("path", path).Info("Logging to a file")
		return nil
	}

	switch format := cfg.GetString(servicesLogFormatKey); format {
	case logFormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case logFormatText, "":
		loggerFormatter := utils.MakeLoggerFormatter([]string{"component", "sub_component"}, nil, false)
		logrus.SetFormatter(&loggerFormatter)
	default:
		return fmt.Errorf(
			"invalid log format %q expecting %q or %q",
			format, logFormatText, logFormatJSON,
		)
	}
	return nil
}

func applyLogLevel(levelStr string) error {
	// "off" keeps assertion failures only
	if levelStr == logLevelOff {
		logrus.SetLevel(logrus.PanicLevel)
		return nil
	}
	for _, expected := range logLevels {
		if expected == levelStr {
			level, err := logrus.ParseLevel(levelStr)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		}
	}
	return fmt.Errorf(
		"invalid log level %q expecting one of %v",
		levelStr, logLevels,
	)
}
