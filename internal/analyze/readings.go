package analyze

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Readings maps a Chinese word to the Sino-Vietnamese reading that must be
// used for it, overriding whatever the model proposes.
type Readings map[string]string

// LoadReadings reads a YAML mapping of word to reading. An empty path yields
// no readings.
func LoadReadings(path string) (Readings, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read readings file %s: %w", path, err)
	}

	var data map[string]string
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse readings YAML %s: %w", path, err)
	}
	return Readings(data).Merge(nil), nil
}

// Merge returns a new set with override entries taking precedence. Blank
// keys and values are dropped.
func (r Readings) Merge(override Readings) Readings {
	out := make(Readings, len(r)+len(override))
	for _, src := range []Readings{r, override} {
		for k, v := range src {
			k, v = strings.TrimSpace(k), strings.TrimSpace(v)
			if k == "" || v == "" {
				continue
			}
			out[k] = v
		}
	}
	return out
}

// Apply overwrites the Sino-Vietnamese reading of tokens that have a forced
// reading.
func (r Readings) Apply(a *Analysis) {
	if len(r) == 0 || a == nil {
		return
	}
	for i := range a.Tokens {
		if v, ok := r[strings.TrimSpace(a.Tokens[i].Text)]; ok {
			a.Tokens[i].HanViet = v
		}
	}
}
