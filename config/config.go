package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultConfig = DEFAULT_CONFIG

type Config struct {
	Spreadsheet string     `yaml:"spreadsheet"`
	Objects     []string   `yaml:"objects"`
	Workdir     string     `yaml:"workdir"`
	Revisions   bool       `yaml:"revisions"`
	Salesforce  Salesforce `yaml:"salesforce"`
	Secrets     Secrets    `yaml:"secrets"`
	Google      Google     `yaml:"google"`
	Log         Log        `yaml:"log"`
}

type Salesforce struct {
	LoginURL    string `yaml:"login-url"`
	APIVersion  string `yaml:"api-version"`
	RedirectURI string `yaml:"redirect-uri"`
}

// Secrets selects where credentials are loaded from: 'env' (environment and
// optional .env file) or 'gcp' (Google Cloud Secret Manager).
type Secrets struct {
	Source  string `yaml:"source"`
	Project string `yaml:"project"`
	DotEnv  string `yaml:"dotenv"`
}

type Google struct {
	Credentials string `yaml:"credentials"`
	Tokens      string `yaml:"tokens"`
}

type Log struct {
	Disabled  bool   `yaml:"disabled"`
	Range     string `yaml:"range"`
	Retention uint   `yaml:"retention"`
}

func NewConfig() *Config {
	return &Config{
		Objects: []string{},
		Workdir: DEFAULT_WORKDIR,
		Salesforce: Salesforce{
			LoginURL:   "https://login.salesforce.com",
			APIVersion: "59.0",
		},
		Secrets: Secrets{
			Source: "env",
			DotEnv: ".env",
		},
		Log: Log{
			Disabled:  true,
			Range:     "Log!A1:H",
			Retention: 30,
		},
	}
}

// Load reads the YAML configuration file over the defaults. A missing file is
// not an error if it is the default configuration file.
func (c *Config) Load(file string) error {
	if file == "" {
		return nil
	}

	bytes, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && file == DefaultConfig {
			return nil
		}

		return err
	}

	if err := yaml.Unmarshal(bytes, c); err != nil {
		return fmt.Errorf("invalid configuration file %v (%w)", file, err)
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	switch c.Secrets.Source {
	case "env":
	case "gcp":
		if strings.TrimSpace(c.Secrets.Project) == "" {
			return fmt.Errorf("secrets.project is required for the 'gcp' secrets source")
		}

	default:
		return fmt.Errorf("invalid secrets source '%v' - expected 'env' or 'gcp'", c.Secrets.Source)
	}

	if !c.Log.Disabled {
		if match := regexp.MustCompile(`(.+?)!.*`).FindStringSubmatch(strings.TrimSpace(c.Log.Range)); len(match) < 2 {
			return fmt.Errorf("invalid log range '%s' - expected something like 'Log!A1:H'", c.Log.Range)
		}
	}

	seen := map[string]bool{}
	for _, object := range c.Objects {
		if strings.TrimSpace(object) == "" {
			return fmt.Errorf("blank object name in 'objects'")
		}

		if seen[object] {
			return fmt.Errorf("duplicate object '%v' in 'objects'", object)
		}

		seen[object] = true
	}

	return nil
}

// SpreadsheetID extracts the spreadsheet ID from a Google Sheets URL. Anything
// that isn't a URL is assumed to already be an ID.
func SpreadsheetID(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("missing spreadsheet")
	}

	if !strings.HasPrefix(v, "https://") {
		return v, nil
	}

	match := regexp.MustCompile(`^https://docs.google.com/spreadsheets/d/(.*?)(?:/.*)?$`).FindStringSubmatch(v)
	if len(match) < 2 || match[1] == "" {
		return "", fmt.Errorf("invalid spreadsheet URL - expected something like 'https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms'")
	}

	return match[1], nil
}
