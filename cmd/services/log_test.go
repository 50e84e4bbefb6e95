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
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogInvalidLevel(t *testing.T) {
	cfg := viper.New()
	cfg.Set(servicesLogLevelKey, "verbose")

	assert.Error(t, configureLog(cfg))
}

func TestConfigureLogInvalidFormat(t *testing.T) {
	previousLevel := logrus.GetLevel()
	defer logrus.SetLevel(previousLevel)

	cfg := viper.New()
	cfg.Set(servicesLogLevelKey, logrus.InfoLevel.String())
	cfg.Set(servicesLogFormatKey, "xml")

	assert.Error(t, configureLog(cfg))
}

func TestConfigureLogOff(t *testing.T) {
	previousLevel := logrus.GetLevel()
	defer logrus.SetLevel(previousLevel)

	cfg := viper.New()
	cfg.Set(servicesLogLevelKey, logLevelOff)

	require.NoError(t, configureLog(cfg))
	assert.Equal(t, logrus.PanicLevel, logrus.GetLevel())
}
