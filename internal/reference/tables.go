package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Tables is the immutable reference vocabulary. Keys are source labels,
// values are canonical names or store identities.
type Tables struct {
	Version             int                          `yaml:"version" validate:"gte=1"`
	Departments         map[string]string            `yaml:"departments" validate:"required,dive,keys,required,endkeys,uuid"`
	Processes           map[string]string            `yaml:"processes" validate:"required,dive,keys,required,endkeys,uuid"`
	ProcessSynonyms     map[string]string            `yaml:"process_synonyms" validate:"dive,keys,required,endkeys,required"`
	ProcessCorrections  []Correction                 `yaml:"process_corrections" validate:"dive"`
	Companies           map[string]string            `yaml:"companies" validate:"dive,keys,required,endkeys,uuid"`
	CompanyTypos        map[string]string            `yaml:"company_typos" validate:"dive,keys,required,endkeys,required"`
	DepartmentCompanies map[string]map[string]string `yaml:"department_companies" validate:"dive,keys,required,endkeys,dive,keys,required,endkeys,uuid"`
	Employees           map[string]string            `yaml:"employees" validate:"dive,keys,required,endkeys,uuid"`
}

// Correction overrides process resolution for one (process label, main
// task) pair.
type Correction struct {
	Process   string `yaml:"process" validate:"required"`
	MainTask  string `yaml:"main_task" validate:"required"`
	Canonical string `yaml:"canonical" validate:"required"`
}

// Default returns the tables shipped with the binary.
func Default() (*Tables, error) {
	return Parse(defaultTables)
}

// Load reads and validates a tables file. An empty path loads the
// embedded default.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference tables: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, trims every label and validates the result.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing reference tables: %w", err)
	}
	t.trim()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks field constraints and that every synonym, typo and
// correction points at an existing canonical entry.
func (t *Tables) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("invalid reference tables: %w", err)
	}

	var errs []error
	for src, name := range t.ProcessSynonyms {
		if _, ok := t.Processes[name]; !ok {
			errs = append(errs, fmt.Errorf("process_synonyms[%q]: unknown process %q", src, name))
		}
	}
	for i, c := range t.ProcessCorrections {
		if _, ok := t.Processes[c.Canonical]; !ok {
			errs = append(errs, fmt.Errorf("process_corrections[%d]: unknown process %q", i, c.Canonical))
		}
	}
	for src, name := range t.CompanyTypos {
		if _, ok := t.Companies[name]; !ok {
			errs = append(errs, fmt.Errorf("company_typos[%q]: unknown company %q", src, name))
		}
	}
	for dept := range t.DepartmentCompanies {
		if _, ok := t.Departments[dept]; !ok {
			errs = append(errs, fmt.Errorf("department_companies[%q]: unknown department", dept))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid reference tables: %w", errors.Join(errs...))
	}
	return nil
}

func (t *Tables) trim() {
	t.Departments = trimKeys(t.Departments)
	t.Processes = trimKeys(t.Processes)
	t.ProcessSynonyms = trimKeys(t.ProcessSynonyms)
	t.Companies = trimKeys(t.Companies)
	t.CompanyTypos = trimKeys(t.CompanyTypos)
	t.Employees = trimKeys(t.Employees)
	for i := range t.ProcessCorrections {
		c := &t.ProcessCorrections[i]
		c.Process = strings.TrimSpace(c.Process)
		c.MainTask = strings.TrimSpace(c.MainTask)
		c.Canonical = strings.TrimSpace(c.Canonical)
	}
	if t.DepartmentCompanies != nil {
		out := make(map[string]map[string]string, len(t.DepartmentCompanies))
		for dept, aliases := range t.DepartmentCompanies {
			out[strings.TrimSpace(dept)] = trimKeys(aliases)
		}
		t.DepartmentCompanies = out
	}
}

func trimKeys(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
