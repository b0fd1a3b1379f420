package shared

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

type Config struct {
	Rules struct {
		Packs             []string `yaml:"packs"`              // extra YAML rule packs
		Watch             bool     `yaml:"watch"`              // hot-reload packs (serve only)
		SeverityThreshold string   `yaml:"severity_threshold"` // "LOW" (default)
		Disabled          []string `yaml:"disabled"`           // rule ids
	} `yaml:"rules"`

	Scan struct {
		Detectors       []string      `yaml:"detectors"` // empty = all
		Workers         int           `yaml:"workers"`
		FileWorkers     int           `yaml:"file_workers"`
		DetectorTimeout time.Duration `yaml:"detector_timeout"` // "10s"
		MaxFileBytes    int64         `yaml:"max_file_bytes"`
	} `yaml:"scan"`

	Policy struct {
		MinTokenDelta    int `yaml:"min_token_delta"`    // 1
		MaxProposalBytes int `yaml:"max_proposal_bytes"` // 1 MiB
	} `yaml:"policy"`

	Storage struct {
		Ledger string `yaml:"ledger"` // "./.realitycheck/ledger.jsonl"; "" disables
		DSN    string `yaml:"dsn"`    // SQLite path; "" disables the mirror
	} `yaml:"storage"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	Server struct {
		Addr string `yaml:"addr"` // ":8080"
	} `yaml:"server"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Rules.SeverityThreshold = "LOW"
	c.Scan.DetectorTimeout = 10 * time.Second
	c.Scan.MaxFileBytes = 1 << 20
	c.Policy.MinTokenDelta = 1
	c.Policy.MaxProposalBytes = 1 << 20
	c.Storage.Ledger = "./.realitycheck/ledger.jsonl"
	c.Reporting.OutDir = "./reports"
	c.Server.Addr = ":8080"
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

// LoadConfig reads path over the defaults, then applies REALITYCHECK_*
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, &ir.ConfigurationError{Reason: "read " + path, Err: err}
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, &ir.ConfigurationError{Reason: "parse " + path, Err: err}
		}
	}
	if err := applyEnv(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Env overrides (simple, explicit)
func applyEnv(c *Config) error {
	var errs []error
	if v := os.Getenv("REALITYCHECK_RULE_PACKS"); v != "" {
		c.Rules.Packs = splitList(v)
	}
	if v := os.Getenv("REALITYCHECK_SEVERITY_THRESHOLD"); v != "" {
		c.Rules.SeverityThreshold = v
	}
	if v := os.Getenv("REALITYCHECK_DISABLED_RULES"); v != "" {
		c.Rules.Disabled = splitList(v)
	}
	if v := os.Getenv("REALITYCHECK_DETECTORS"); v != "" {
		c.Scan.Detectors = splitList(v)
	}
	if v := os.Getenv("REALITYCHECK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("REALITYCHECK_WORKERS", err))
		c.Scan.Workers = n
	}
	if v := os.Getenv("REALITYCHECK_DETECTOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		errs = append(errs, envErr("REALITYCHECK_DETECTOR_TIMEOUT", err))
		c.Scan.DetectorTimeout = d
	}
	if v := os.Getenv("REALITYCHECK_MIN_TOKEN_DELTA"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("REALITYCHECK_MIN_TOKEN_DELTA", err))
		c.Policy.MinTokenDelta = n
	}
	if v := os.Getenv("REALITYCHECK_LEDGER"); v != "" {
		c.Storage.Ledger = v
	}
	if v := os.Getenv("REALITYCHECK_DB_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("REALITYCHECK_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("REALITYCHECK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("REALITYCHECK_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("REALITYCHECK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return errors.Join(errs...)
}

func envErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return &ir.ConfigurationError{Reason: name, Err: err}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate rejects values no component could run with.
func (c Config) Validate() error {
	if _, ok := ir.ParseSeverity(c.Rules.SeverityThreshold); !ok && c.Rules.SeverityThreshold != "" {
		return &ir.ConfigurationError{Reason: fmt.Sprintf("unknown severity threshold %q", c.Rules.SeverityThreshold)}
	}
	if c.Policy.MinTokenDelta < 0 {
		return &ir.ConfigurationError{Reason: "policy.min_token_delta must not be negative"}
	}
	if c.Scan.Workers < 0 || c.Scan.FileWorkers < 0 {
		return &ir.ConfigurationError{Reason: "scan workers must not be negative"}
	}
	return nil
}

// Threshold is the parsed severity threshold.
func (c Config) Threshold() ir.Severity {
	s, _ := ir.ParseSeverity(c.Rules.SeverityThreshold)
	return s
}
