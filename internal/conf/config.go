// Package conf loads and validates the run configuration.
//
// Configuration comes from a YAML file, environment variables with the
// SPECIMEN_CROP_ prefix, and built-in defaults, in rising precedence.
// Validation is fail-fast: a run with any out-of-range threshold stops
// before the first image is touched, never partway through a worklist.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/morphosource/specimen-crop/internal/imaging"
)

// Settings is the complete, immutable run configuration. Workers share
// it read-only.
type Settings struct {
	Input     InputSettings     `mapstructure:"input"`
	Output    OutputSettings    `mapstructure:"output"`
	Detector  DetectorSettings  `mapstructure:"detector"`
	Filter    FilterSettings    `mapstructure:"filter"`
	NMS       NMSSettings       `mapstructure:"nms"`
	Selection SelectionSettings `mapstructure:"selection"`
	Crop      CropSettings      `mapstructure:"crop"`
	Workers   int               `mapstructure:"workers"`
	LogLevel  string            `mapstructure:"log_level"`
}

// InputSettings locates the measurement table and the group images.
type InputSettings struct {
	// MeasurementsCSV is the tabular record set of specimen
	// measurement points.
	MeasurementsCSV string `mapstructure:"measurements_csv"`

	// ImageDir holds the group photographs, addressable by the image
	// identifiers in the measurement table.
	ImageDir string `mapstructure:"image_dir"`

	// PreferredAnnotator selects among duplicate measurement rows for
	// the same specimen. Empty keeps the first row.
	PreferredAnnotator string `mapstructure:"preferred_annotator"`
}

// OutputSettings locates the run's outputs.
type OutputSettings struct {
	// Dir receives one subdirectory per image with its crops and
	// per-image record table.
	Dir string `mapstructure:"dir"`

	// CSV is the master record table covering every input specimen.
	CSV string `mapstructure:"csv"`
}

// DetectorSettings configures the zero-shot detection service adapter.
type DetectorSettings struct {
	URL           string        `mapstructure:"url"`
	Prompt        string        `mapstructure:"prompt"`
	BoxThreshold  float64       `mapstructure:"box_threshold"`
	TextThreshold float64       `mapstructure:"text_threshold"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// FilterSettings bounds plausible candidate box areas.
type FilterSettings struct {
	MinFraction   float64 `mapstructure:"min_fraction"`
	MaxFraction   float64 `mapstructure:"max_fraction"`
	OutlierFactor float64 `mapstructure:"outlier_factor"`
	Adaptive      bool    `mapstructure:"adaptive"`
}

// NMSSettings configures duplicate suppression.
type NMSSettings struct {
	IoUThreshold float64 `mapstructure:"iou_threshold"`
}

// SelectionSettings weights the box selection score.
type SelectionSettings struct {
	ConfidenceWeight float64 `mapstructure:"confidence_weight"`
	AreaWeight       float64 `mapstructure:"area_weight"`
}

// CropSettings configures crop padding and the letterbox canvas.
type CropSettings struct {
	Padding       float64 `mapstructure:"padding"`
	LetterboxSize int     `mapstructure:"letterbox_size"`

	// Fill is the letterbox canvas color as "#RRGGBB", or "mean" to
	// derive it from each photograph's mean color.
	Fill string `mapstructure:"fill"`
}

// FillIsMean reports whether the letterbox fill tracks the image mean.
func (c CropSettings) FillIsMean() bool {
	return strings.EqualFold(c.Fill, "mean")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("detector.prompt", "a beetle.")
	v.SetDefault("detector.box_threshold", 0.2)
	v.SetDefault("detector.text_threshold", 0.2)
	v.SetDefault("detector.timeout", "120s")
	v.SetDefault("filter.min_fraction", 0.0001)
	v.SetDefault("filter.max_fraction", 0.5)
	v.SetDefault("filter.outlier_factor", 0.0)
	v.SetDefault("filter.adaptive", true)
	v.SetDefault("nms.iou_threshold", 0.6)
	v.SetDefault("selection.confidence_weight", 0.5)
	v.SetDefault("selection.area_weight", 0.5)
	v.SetDefault("crop.padding", 0.1)
	v.SetDefault("crop.letterbox_size", 512)
	// ImageNet channel means; see CropSettings.Fill.
	v.SetDefault("crop.fill", "#7b7467")
	v.SetDefault("output.csv", "records.csv")
	v.SetDefault("workers", 4)
	v.SetDefault("log_level", "info")
}

// Load reads the configuration from configFile (optional; empty looks
// for specimen-crop.yaml in the working directory), applies
// environment overrides, and validates the result.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("specimen-crop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SPECIMEN_CROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default config file is fine; an explicit one is not.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks every tunable against its documented range. The
// first violation fails the whole run up front.
func (s *Settings) Validate() error {
	switch {
	case s.Input.MeasurementsCSV == "":
		return fmt.Errorf("input.measurements_csv is required")
	case s.Input.ImageDir == "":
		return fmt.Errorf("input.image_dir is required")
	case s.Output.Dir == "":
		return fmt.Errorf("output.dir is required")
	case s.Output.CSV == "":
		return fmt.Errorf("output.csv is required")
	case s.Detector.URL == "":
		return fmt.Errorf("detector.url is required")
	case s.Detector.Prompt == "":
		return fmt.Errorf("detector.prompt is required")
	}

	if s.Detector.BoxThreshold < 0 || s.Detector.BoxThreshold > 1 {
		return fmt.Errorf("detector.box_threshold %v outside [0,1]", s.Detector.BoxThreshold)
	}
	if s.Detector.TextThreshold < 0 || s.Detector.TextThreshold > 1 {
		return fmt.Errorf("detector.text_threshold %v outside [0,1]", s.Detector.TextThreshold)
	}
	if s.Detector.Timeout < 0 {
		return fmt.Errorf("detector.timeout must not be negative")
	}

	if s.Filter.MinFraction < 0 || s.Filter.MinFraction >= 1 {
		return fmt.Errorf("filter.min_fraction %v outside [0,1)", s.Filter.MinFraction)
	}
	if s.Filter.MaxFraction <= 0 || s.Filter.MaxFraction > 1 {
		return fmt.Errorf("filter.max_fraction %v outside (0,1]", s.Filter.MaxFraction)
	}
	if s.Filter.MinFraction >= s.Filter.MaxFraction {
		return fmt.Errorf("filter.min_fraction %v must be below filter.max_fraction %v",
			s.Filter.MinFraction, s.Filter.MaxFraction)
	}
	if s.Filter.OutlierFactor != 0 && s.Filter.OutlierFactor < 1 {
		return fmt.Errorf("filter.outlier_factor %v must be 0 (disabled) or at least 1", s.Filter.OutlierFactor)
	}

	if s.NMS.IoUThreshold <= 0 || s.NMS.IoUThreshold > 1 {
		return fmt.Errorf("nms.iou_threshold %v outside (0,1]", s.NMS.IoUThreshold)
	}

	if s.Selection.ConfidenceWeight < 0 || s.Selection.AreaWeight < 0 {
		return fmt.Errorf("selection weights must not be negative")
	}
	if s.Selection.ConfidenceWeight+s.Selection.AreaWeight <= 0 {
		return fmt.Errorf("selection weights must not both be zero")
	}

	if s.Crop.Padding < 0 {
		return fmt.Errorf("crop.padding must not be negative")
	}
	if s.Crop.LetterboxSize < 0 {
		return fmt.Errorf("crop.letterbox_size must not be negative")
	}
	if s.Crop.LetterboxSize > 0 && !s.Crop.FillIsMean() {
		if _, err := imaging.ParseFillColor(s.Crop.Fill); err != nil {
			return fmt.Errorf("crop.fill: %w", err)
		}
	}

	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}
