/*
 *  config.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ConfigFile is the canonical name of a pipeline configuration file
const ConfigFile = "pipeline.yml"

// templates holds the per-pipeline default configuration files
var templates = packr.NewBox("./templates")

// Params holds the merged pipeline configuration. Values are accessed by
// flat keys ("database_name", "deeptools_ignore_duplicates"), mirroring the
// section_option flattening of the classic ini files.
type Params struct {
	v *viper.Viper
}

// NewParams returns an empty parameter set
func NewParams() *Params {
	return &Params{v: viper.New()}
}

// LoadParams builds the configuration for one pipeline. Defaults embedded in
// templates/pipeline_<name>.yml are read first, then pipeline.yml from the
// parent directory and the working directory, each overriding the previous
// layer. Missing files degrade with a warning.
func LoadParams(pipeline string) (*Params, error) {
	p := NewParams()
	p.v.SetConfigType("yaml")

	defaults, err := templates.FindString("pipeline_" + pipeline + ".yml")
	if err != nil {
		return nil, errors.Wrapf(err, "no embedded defaults for pipeline %s", pipeline)
	}
	if err := p.v.ReadConfig(strings.NewReader(defaults)); err != nil {
		return nil, errors.Wrap(err, "default configuration is unreadable")
	}

	for _, dir := range []string{"..", "."} {
		cfg := filepath.Join(dir, ConfigFile)
		if !FileExists(cfg) {
			continue
		}
		if err := p.Merge(cfg); err != nil {
			return nil, err
		}
	}
	if !FileExists(ConfigFile) {
		log.Warningf("%s is not located within the folder, using defaults", ConfigFile)
	}
	return p, nil
}

// Merge layers an additional configuration file (YAML, or legacy INI when
// the file ends in .ini) on top of the current values
func (p *Params) Merge(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "cannot open config %s", path)
	}
	defer fh.Close()

	merged := viper.New()
	if strings.HasSuffix(path, ".ini") {
		merged.SetConfigType("ini")
	} else {
		merged.SetConfigType("yaml")
	}
	if err := merged.ReadConfig(fh); err != nil {
		return errors.Wrapf(err, "cannot parse config %s", path)
	}
	for _, key := range merged.AllKeys() {
		// ini sections arrive as section.option; flatten to section_option
		flat := strings.ReplaceAll(key, ".", "_")
		p.v.Set(flat, merged.Get(key))
	}
	return nil
}

// Set overrides a single value
func (p *Params) Set(key string, value interface{}) { p.v.Set(key, value) }

// Has reports whether a key is present
func (p *Params) Has(key string) bool { return p.v.IsSet(key) }

// String returns a string parameter, empty when unset
func (p *Params) String(key string) string { return p.v.GetString(key) }

// MustString returns a string parameter and aborts when it is missing
func (p *Params) MustString(key string) string {
	if !p.v.IsSet(key) {
		log.Fatalf("required configuration value `%s` is not set", key)
	}
	return p.v.GetString(key)
}

// Int returns an integer parameter
func (p *Params) Int(key string) int { return p.v.GetInt(key) }

// Float returns a float parameter
func (p *Params) Float(key string) float64 { return p.v.GetFloat64(key) }

// Bool returns a boolean parameter
func (p *Params) Bool(key string) bool { return p.v.GetBool(key) }

// Strings returns a list parameter; a comma-separated scalar is split so
// "kegg,reactome" and a proper YAML list behave the same
func (p *Params) Strings(key string) []string {
	raw := p.v.GetStringSlice(key)
	if len(raw) == 1 && strings.Contains(raw[0], ",") {
		raw = strings.Split(raw[0], ",")
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Database returns the pipeline database path
func (p *Params) Database() string {
	if db := p.String("database_name"); db != "" {
		return db
	}
	return DefaultDatabase
}

var substRe = regexp.MustCompile(`%\(([a-zA-Z0-9_]+)\)s`)

// Substitute expands %(key)s references in a statement template from the
// configuration. Unknown keys abort: a statement sent to a tool with a
// literal %(...)s placeholder is never what anyone wants.
func (p *Params) Substitute(statement string) string {
	return substRe.ReplaceAllStringFunc(statement, func(m string) string {
		key := substRe.FindStringSubmatch(m)[1]
		if !p.v.IsSet(key) {
			log.Fatalf("statement references unknown configuration value `%s`", key)
		}
		return p.v.GetString(key)
	})
}

// WriteDefaultConfig materializes the embedded default pipeline.yml for a
// pipeline into the working directory (the `config` subcommand)
func WriteDefaultConfig(pipeline string) error {
	if FileExists(ConfigFile) {
		return errors.Errorf("%s already exists, not overwriting", ConfigFile)
	}
	defaults, err := templates.FindString("pipeline_" + pipeline + ".yml")
	if err != nil {
		return errors.Wrapf(err, "no embedded defaults for pipeline %s", pipeline)
	}
	if err := os.WriteFile(ConfigFile, []byte(defaults), 0644); err != nil {
		return errors.Wrap(err, "cannot write pipeline.yml")
	}
	log.Noticef("Wrote default configuration to `%s`", ConfigFile)
	return nil
}
