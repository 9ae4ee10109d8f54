// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the store options.
//
//	name: counter
//	policy: serial
//	channel_capacity: 128
type Config struct {
	Name            string `yaml:"name" validate:"omitempty,max=64"`
	Policy          string `yaml:"policy" validate:"omitempty,oneof=concurrent serial"`
	ChannelCapacity int    `yaml:"channel_capacity" validate:"omitempty,min=2,max=65536"`
}

// validate caches struct metadata; it is safe for concurrent use.
var validate = validator.New()

// Validate checks field ranges and the policy name.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("compose: invalid config: %w", err)
	}
	return nil
}

// ParseConfig decodes and validates a YAML document.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("compose: parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig decodes and validates a YAML document from r.
// Unknown keys are rejected. An empty document yields the zero Config.
func LoadConfig(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("compose: load config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
