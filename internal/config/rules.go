package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/invoice-cli/internal/model"
)

// rulesFile is the on-disk shape of a validation rules file: a mapping from
// field name to its rule set.
type rulesFile struct {
	Rules map[string]model.FieldRule `yaml:"rules"`
}

// LoadRules reads a validation rule table from a YAML file.
func LoadRules(path string) (map[string]model.FieldRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read rules file %s", path)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, eris.Wrapf(err, "config: parse rules file %s", path)
	}
	if len(rf.Rules) == 0 {
		return nil, eris.Errorf("config: rules file %s defines no rules", path)
	}

	return rf.Rules, nil
}
