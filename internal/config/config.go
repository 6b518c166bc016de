package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/scorecorr-cli/internal/analysis"
	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/socrata"
)

// Global configuration structure.
type Global struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	AppToken string `mapstructure:"app_token" yaml:"app_token"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int     `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=1"`
	RetryMaxAttempts int     `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelayMs int     `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs  int     `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps" validate:"gte=0"`
	PageSize         int     `mapstructure:"page_size" yaml:"page_size" validate:"gte=0"`

	DataDir   string `mapstructure:"data_dir" yaml:"data_dir"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`

	// Datasets
	ELADataset          string `mapstructure:"ela_dataset" yaml:"ela_dataset" validate:"dataset_id"`
	ELALimit            int    `mapstructure:"ela_limit" yaml:"ela_limit" validate:"gte=1"`
	MathDataset         string `mapstructure:"math_dataset" yaml:"math_dataset" validate:"dataset_id"`
	MathLimit           int    `mapstructure:"math_limit" yaml:"math_limit" validate:"gte=1"`
	DemographicsDataset string `mapstructure:"demographics_dataset" yaml:"demographics_dataset" validate:"dataset_id"`
	DemographicsLimit   int    `mapstructure:"demographics_limit" yaml:"demographics_limit" validate:"gte=1"`
	LocationsDataset    string `mapstructure:"locations_dataset" yaml:"locations_dataset" validate:"dataset_id"`
	LocationsLimit      int    `mapstructure:"locations_limit" yaml:"locations_limit" validate:"gte=1"`

	// Analysis
	RegionMin          int      `mapstructure:"region_min" yaml:"region_min" validate:"gte=1"`
	RegionMax          int      `mapstructure:"region_max" yaml:"region_max" validate:"gtefield=RegionMin"`
	GradeMin           int      `mapstructure:"grade_min" yaml:"grade_min" validate:"gte=1"`
	GradeMax           int      `mapstructure:"grade_max" yaml:"grade_max" validate:"gtefield=GradeMin"`
	Precision          int      `mapstructure:"precision" yaml:"precision" validate:"gte=0,lte=10"`
	RankGrade          int      `mapstructure:"rank_grade" yaml:"rank_grade"`
	RankSize           int      `mapstructure:"rank_size" yaml:"rank_size" validate:"gte=0"`
	CorrelationColumns []string `mapstructure:"correlation_columns" yaml:"correlation_columns"`
	ScatterPairs       []string `mapstructure:"scatter_pairs" yaml:"scatter_pairs" validate:"dive,scatter_pair"`
	MapValueColumn     string   `mapstructure:"map_value_column" yaml:"map_value_column"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// DefaultScatterPairs plots each ethnicity share against the proficiency rate.
var DefaultScatterPairs = []string{
	dataset.ColAsianPct + ":" + dataset.ColLevel34Pct,
	dataset.ColBlackPct + ":" + dataset.ColLevel34Pct,
	dataset.ColHispanicPct + ":" + dataset.ColLevel34Pct,
	dataset.ColWhitePct + ":" + dataset.ColLevel34Pct,
}

// Dir returns ~/.scorecorr.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".scorecorr"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.scorecorr/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	src := dataset.DefaultSources()
	v.SetDefault("base_url", socrata.DefaultBaseURL)
	v.SetDefault("app_token", "")
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("rate_limit_rps", 2.0)
	v.SetDefault("page_size", 0)
	v.SetDefault("data_dir", "")
	v.SetDefault("output_dir", "scorecorr-out")
	v.SetDefault("ela_dataset", src.ELA.DatasetID)
	v.SetDefault("ela_limit", src.ELA.Limit)
	v.SetDefault("math_dataset", src.Math.DatasetID)
	v.SetDefault("math_limit", src.Math.Limit)
	v.SetDefault("demographics_dataset", src.Demographics.DatasetID)
	v.SetDefault("demographics_limit", src.Demographics.Limit)
	v.SetDefault("locations_dataset", src.Locations.DatasetID)
	v.SetDefault("locations_limit", src.Locations.Limit)

	opt := analysis.DefaultOptions()
	v.SetDefault("region_min", opt.Regions.Min)
	v.SetDefault("region_max", opt.Regions.Max)
	v.SetDefault("grade_min", opt.Grades.Min)
	v.SetDefault("grade_max", opt.Grades.Max)
	v.SetDefault("precision", opt.Precision)
	v.SetDefault("rank_grade", 5)
	v.SetDefault("rank_size", 5)
	v.SetDefault("correlation_columns", []string{})
	v.SetDefault("scatter_pairs", DefaultScatterPairs)
	v.SetDefault("map_value_column", dataset.ColMeanScaleScore)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SCORECORR")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

var (
	datasetIDPattern = regexp.MustCompile(`^[a-z0-9]{4}-[a-z0-9]{4}$`)
	validate         = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("dataset_id", isDatasetID)
	_ = v.RegisterValidation("scatter_pair", isScatterPair)
	return v
}

// isDatasetID matches Socrata four-by-four identifiers such as gu76-8i7h.
func isDatasetID(fl validator.FieldLevel) bool {
	return datasetIDPattern.MatchString(fl.Field().String())
}

// isScatterPair matches "X column:Y column".
func isScatterPair(fl validator.FieldLevel) bool {
	_, _, err := ParsePair(fl.Field().String())
	return err == nil
}

// ParsePair splits a scatter pair "X:Y" into its columns.
func ParsePair(s string) (string, string, error) {
	x, y, ok := strings.Cut(s, ":")
	x, y = strings.TrimSpace(x), strings.TrimSpace(y)
	if !ok || x == "" || y == "" {
		return "", "", fmt.Errorf("invalid scatter pair %q (want \"X column:Y column\")", s)
	}
	return x, y, nil
}

// Validate checks field constraints and reports each failure by config key.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gte": ">=", "lte": "<="}[fe.Tag()], fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be below %s", field, fe.Param())
	case "dataset_id":
		return fmt.Sprintf("%s %q is not a dataset id like gu76-8i7h", field, fe.Value())
	case "scatter_pair":
		return fmt.Sprintf("%s entry %q must look like \"X column:Y column\"", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// Sources returns the configured datasets.
func (c *Global) Sources() dataset.Sources {
	s := dataset.DefaultSources()
	s.ELA.DatasetID, s.ELA.Limit = c.ELADataset, c.ELALimit
	s.Math.DatasetID, s.Math.Limit = c.MathDataset, c.MathLimit
	s.Demographics.DatasetID, s.Demographics.Limit = c.DemographicsDataset, c.DemographicsLimit
	s.Locations.DatasetID, s.Locations.Limit = c.LocationsDataset, c.LocationsLimit
	return s
}

// AnalysisOptions returns the aggregation bounds and rounding.
func (c *Global) AnalysisOptions() analysis.Options {
	return analysis.Options{
		Regions:   analysis.Range{Min: c.RegionMin, Max: c.RegionMax},
		Grades:    analysis.Range{Min: c.GradeMin, Max: c.GradeMax},
		Precision: c.Precision,
	}
}

// ClientOptions returns the data portal client settings.
func (c *Global) ClientOptions() socrata.Options {
	return socrata.Options{
		BaseURL:           c.BaseURL,
		AppToken:          c.AppToken,
		HTTPTimeout:       time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:          c.RetryMaxAttempts,
		BaseDelay:         time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:          time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		RequestsPerSecond: c.RateLimitRPS,
		PageSize:          c.PageSize,
	}
}
