package ocr

import (
	"fmt"
	"strconv"
	"strings"
)

// Variable is a Tesseract parameter set with "-c name=value".
type Variable struct {
	Name  string
	Value string
}

// Config is the parsed form of a request's config string.
type Config struct {
	// Languages from "-l", split on '+'.
	Languages []string

	// PageSegMode from "--psm"; -1 when unset.
	PageSegMode int

	// EngineMode from "--oem"; -1 when unset.
	EngineMode int

	// DPI from "--dpi"; 0 when unset.
	DPI int

	// TessdataDir from "--tessdata-dir".
	TessdataDir string

	// Variables from "-c name=value", in the order given.
	Variables []Variable

	// ConfigFiles are bare words naming Tesseract config files
	// (e.g. "digits", "quiet").
	ConfigFiles []string
}

// outputConfigs switch Tesseract to a renderer that does not write
// "<stem>.txt", which the command recognizer depends on.
var outputConfigs = map[string]bool{
	"alto":       true,
	"box.train":  true,
	"get.images": true,
	"hocr":       true,
	"lstm.train": true,
	"lstmbox":    true,
	"makebox":    true,
	"pdf":        true,
	"tsv":        true,
	"wordstrbox": true,
}

// ParseConfig splits config on whitespace and interprets the Tesseract
// options it understands:
//
//	-l <lang[+lang...]>    recognition languages
//	--psm <0-13>           page segmentation mode
//	--oem <0-3>            OCR engine mode
//	--dpi <n>              source resolution hint
//	--tessdata-dir <dir>   traineddata location
//	-c <name>=<value>      engine variable
//	<word>                 config file name
//
// Any other option, a missing option value, or a config file that changes
// the output format fails with ErrInvalidConfig. An empty string yields a
// Config with no options set.
func ParseConfig(config string) (*Config, error) {
	cfg := &Config{PageSegMode: -1, EngineMode: -1}
	fields := strings.Fields(config)

	for i := 0; i < len(fields); i++ {
		flag := fields[i]

		if !strings.HasPrefix(flag, "-") {
			if outputConfigs[flag] {
				return nil, fmt.Errorf("%w: config file %q changes the output format", ErrInvalidConfig, flag)
			}
			cfg.ConfigFiles = append(cfg.ConfigFiles, flag)
			continue
		}

		if i+1 >= len(fields) {
			return nil, fmt.Errorf("%w: option %s requires a value", ErrInvalidConfig, flag)
		}
		value := fields[i+1]
		i++

		switch flag {
		case "-l":
			langs := strings.Split(value, "+")
			for _, l := range langs {
				if l == "" {
					return nil, fmt.Errorf("%w: empty language in %q", ErrInvalidConfig, value)
				}
			}
			cfg.Languages = langs
		case "--psm":
			n, err := parseRange(flag, value, 0, 13)
			if err != nil {
				return nil, err
			}
			cfg.PageSegMode = n
		case "--oem":
			n, err := parseRange(flag, value, 0, 3)
			if err != nil {
				return nil, err
			}
			cfg.EngineMode = n
		case "--dpi":
			n, err := parseRange(flag, value, 1, 2400)
			if err != nil {
				return nil, err
			}
			cfg.DPI = n
		case "--tessdata-dir":
			cfg.TessdataDir = value
		case "-c":
			name, val, ok := strings.Cut(value, "=")
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: -c expects name=value, got %q", ErrInvalidConfig, value)
			}
			cfg.Variables = append(cfg.Variables, Variable{Name: name, Value: val})
		default:
			return nil, fmt.Errorf("%w: unsupported option %s", ErrInvalidConfig, flag)
		}
	}

	return cfg, nil
}

func parseRange(flag, value string, min, max int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%w: %s expects an integer in [%d, %d], got %q", ErrInvalidConfig, flag, min, max, value)
	}
	return n, nil
}

// Flags renders the options back into Tesseract command line form, without
// config files. defaultTessdata is used when no --tessdata-dir was given.
func (c *Config) Flags(defaultTessdata string) []string {
	var args []string

	tessdata := c.TessdataDir
	if tessdata == "" {
		tessdata = defaultTessdata
	}
	if tessdata != "" {
		args = append(args, "--tessdata-dir", tessdata)
	}
	if len(c.Languages) > 0 {
		args = append(args, "-l", strings.Join(c.Languages, "+"))
	}
	if c.PageSegMode >= 0 {
		args = append(args, "--psm", strconv.Itoa(c.PageSegMode))
	}
	if c.EngineMode >= 0 {
		args = append(args, "--oem", strconv.Itoa(c.EngineMode))
	}
	if c.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(c.DPI))
	}
	for _, v := range c.Variables {
		args = append(args, "-c", v.Name+"="+v.Value)
	}
	return args
}
