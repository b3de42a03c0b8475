// Package catalog describes the control units and sensor channels a vehicle
// exposes: display names, special-unit flags, units, and alarm thresholds.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"diagnostic_assistant/internal/models"

	"gopkg.in/yaml.v3"
)

// ECU is the static description of one control unit.
type ECU struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Special     bool   `yaml:"special"`
}

// Threshold bounds a sensor channel. A zero bound is unset.
// Values outside [WarnLow, WarnHigh] are WARNING; outside [ErrorLow, ErrorHigh] are ERROR.
type Threshold struct {
	Channel   models.SensorChannel `yaml:"channel"`
	Unit      string               `yaml:"unit"`
	WarnLow   float64              `yaml:"warn_low"`
	WarnHigh  float64              `yaml:"warn_high"`
	ErrorLow  float64              `yaml:"error_low"`
	ErrorHigh float64              `yaml:"error_high"`
}

// Catalog is immutable after Load/Default.
type Catalog struct {
	ECUs    []ECU       `yaml:"ecus"`
	Sensors []Threshold `yaml:"sensors"`

	ecuIndex    map[string]ECU
	sensorIndex map[models.SensorChannel]Threshold
}

// Load reads a YAML catalog from path. An empty path or a missing file yields Default().
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Sections left empty fall back to the defaults.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	def := Default()
	if len(c.ECUs) == 0 {
		c.ECUs = def.ECUs
	}
	if len(c.Sensors) == 0 {
		c.Sensors = def.Sensors
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.ecuIndex = make(map[string]ECU, len(c.ECUs))
	for i, e := range c.ECUs {
		id := strings.ToUpper(strings.TrimSpace(e.ID))
		if id == "" {
			return fmt.Errorf("catalog ecu #%d: empty id", i+1)
		}
		if _, dup := c.ecuIndex[id]; dup {
			return fmt.Errorf("catalog ecu %q: duplicate id", id)
		}
		e.ID = id
		c.ECUs[i] = e
		c.ecuIndex[id] = e
	}
	c.sensorIndex = make(map[models.SensorChannel]Threshold, len(c.Sensors))
	for _, s := range c.Sensors {
		c.sensorIndex[s.Channel] = s
	}
	return nil
}

// ECU returns the catalog entry for id. Unknown ids get a bare entry named after the id.
func (c *Catalog) ECU(id string) ECU {
	if e, ok := c.ecuIndex[strings.ToUpper(id)]; ok {
		return e
	}
	return ECU{ID: id, Name: id}
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.ecuIndex[strings.ToUpper(id)]
	return ok
}

// ECUIDs returns the catalog ids in declaration order.
func (c *Catalog) ECUIDs() []string {
	out := make([]string, 0, len(c.ECUs))
	for _, e := range c.ECUs {
		out = append(out, e.ID)
	}
	return out
}

// Unit returns the display unit of a channel.
func (c *Catalog) Unit(ch models.SensorChannel) string {
	return c.sensorIndex[ch].Unit
}

// Classify maps a value to NORMAL/WARNING/ERROR using the channel thresholds.
// Channels without thresholds are always NORMAL.
func (c *Catalog) Classify(ch models.SensorChannel, v float64) models.SensorStatus {
	t, ok := c.sensorIndex[ch]
	if !ok {
		return models.SensorNormal
	}
	if (t.ErrorLow != 0 && v < t.ErrorLow) || (t.ErrorHigh != 0 && v > t.ErrorHigh) {
		return models.SensorError
	}
	if (t.WarnLow != 0 && v < t.WarnLow) || (t.WarnHigh != 0 && v > t.WarnHigh) {
		return models.SensorWarning
	}
	return models.SensorNormal
}

// DescribeECU returns the display name, description, and special-unit flag of id.
func (c *Catalog) DescribeECU(id string) (name, description string, special bool) {
	e := c.ECU(id)
	return e.Name, e.Description, e.Special
}
