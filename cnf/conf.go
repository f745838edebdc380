// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cnf

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/intentio/dataset"
	"github.com/rs/zerolog/log"
)

const (
	dfltServerWriteTimeoutSecs = 30
	dfltTimeZone               = "Europe/Prague"
	dfltInterestMode           = "revised"
)

// DatasetConf declares one dataset of the catalog: its star-schema
// shape and where its flattened fact table comes from. Exactly one
// of Path (a CSV file) and DB should be filled.
type DatasetConf struct {
	Name   string         `json:"name"`
	Schema dataset.Schema `json:"schema"`
	Path   string         `json:"path"`
	DB     dataset.DBConf `json:"db"`
}

type Conf struct {
	srcPath                string
	Logging                logging.LoggingConf `json:"logging"`
	ListenAddress          string              `json:"listenAddress"`
	PublicURL              string              `json:"publicUrl"`
	ListenPort             int                 `json:"listenPort"`
	ServerReadTimeoutSecs  int                 `json:"serverReadTimeoutSecs"`
	ServerWriteTimeoutSecs int                 `json:"serverWriteTimeoutSecs"`
	CorsAllowedOrigins     []string            `json:"corsAllowedOrigins"`
	TimeZone               string              `json:"timeZone"`
	Datasets               []DatasetConf       `json:"datasets"`

	// CacheDirPath - when set, imported fact tables are kept in a
	// local cache between runs so repeated benchmarking does not
	// re-read slow sources.
	CacheDirPath string `json:"cacheDirPath"`

	// InterestMode selects the interestingness formulas: "legacy"
	// (membership-weighted peculiarity) or "revised" (normalized
	// peculiarity plus novelty and surprise).
	InterestMode string `json:"interestMode"`
}

func (conf *Conf) GetSourcePath() string {
	return conf.srcPath
}

func LoadConfig(path string) *Conf {
	if path == "" {
		log.Fatal().Msg("Cannot load config - path not specified")
	}
	rawData, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	var conf Conf
	conf.srcPath = path
	err = json.Unmarshal(rawData, &conf)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	return &conf
}

func ValidateAndDefaults(conf *Conf) {
	if conf.ServerWriteTimeoutSecs == 0 {
		conf.ServerWriteTimeoutSecs = dfltServerWriteTimeoutSecs
		log.Warn().Msgf(
			"serverWriteTimeoutSecs not specified, using default: %d",
			dfltServerWriteTimeoutSecs,
		)
	}
	if conf.PublicURL == "" {
		conf.PublicURL = fmt.Sprintf("http://%s", conf.ListenAddress)
		log.Warn().Str("address", conf.PublicURL).Msg("publicUrl not set, using listenAddress")
	}

	if conf.TimeZone == "" {
		conf.TimeZone = dfltTimeZone
		log.Warn().
			Str("timeZone", dfltTimeZone).
			Msg("time zone not specified, using default")
	}
	if _, err := time.LoadLocation(conf.TimeZone); err != nil {
		log.Fatal().Err(err).Msg("invalid time zone")
	}

	if conf.InterestMode == "" {
		conf.InterestMode = dfltInterestMode

	} else if conf.InterestMode != "legacy" && conf.InterestMode != "revised" {
		log.Fatal().Str("interestMode", conf.InterestMode).Msg("invalid interest mode")
	}
	if len(conf.Datasets) == 0 {
		log.Warn().Msg("no datasets configured")
	}
	seen := make(map[string]bool)
	for _, ds := range conf.Datasets {
		if ds.Name == "" {
			log.Fatal().Msg("dataset with no name in configuration")
		}
		if seen[ds.Name] {
			log.Fatal().Str("dataset", ds.Name).Msg("dataset configured twice")
		}
		seen[ds.Name] = true
		if ds.Path == "" && ds.DB.Driver == "" {
			log.Fatal().Str("dataset", ds.Name).Msg("dataset has no source")
		}
	}
}
