// Package config loads csvread settings from YAML, JSON or TOML files and
// merges them with command-line flags.
//
// Keys are matched without regard to case, dashes or underscores, so
// "header_names", "header-names" and "headerNames" are the same key. The
// "headers" key accepts either a boolean or a list of names, and "range"
// accepts "2:4", [2, 4] or {start: 2, end: 4}.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cast"

	"github.com/shapestone/shape-csvreader/pkg/csv"
)

// AutoDelimiter asks the CLI to sniff the delimiter from the input.
const AutoDelimiter = "auto"

// File holds every csvread setting.
type File struct {
	Strict      bool      `mapstructure:"strict"`
	Headers     bool      `mapstructure:"headers"`
	HeaderNames []string  `mapstructure:"headernames"`
	Quote       string    `mapstructure:"quote"`
	Escape      string    `mapstructure:"escape"`
	Delimiter   string    `mapstructure:"delimiter"`
	Newline     string    `mapstructure:"newline"`
	Comment     string    `mapstructure:"comment"`
	NoComments  bool      `mapstructure:"nocomments"`
	Range       csv.Range `mapstructure:"range"`
	MapHeaders  string    `mapstructure:"mapheaders"`
	ChunkSize   int       `mapstructure:"chunksize"`

	Format      string `mapstructure:"format"`
	MetricsFile string `mapstructure:"metricsfile"`
	Log         Log    `mapstructure:"log"`
}

// Log configures diagnostics output.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns the settings used when neither a file nor a flag sets a
// value.
func Defaults() File {
	return File{
		Format: "json",
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads the file at path. The format follows the extension: .yaml,
// .yml and .json are parsed as YAML (a superset of JSON), .toml as TOML.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}

	values := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		err = yaml.Unmarshal(data, &values)
	case ".toml":
		err = toml.Unmarshal(data, &values)
	default:
		return File{}, fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return File{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return Decode(values)
}

// Decode binds loosely typed values onto a File.
func Decode(values map[string]any) (File, error) {
	values = normalizeKeys(values)

	// headers: [a, b] is shorthand for an explicit header set.
	if names, ok := values["headers"].([]any); ok {
		values["headernames"] = names
		values["headers"] = true
	}

	var f File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &f,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			rangeHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return File{}, fmt.Errorf("config: create decoder: %w", err)
	}
	if err := decoder.Decode(values); err != nil {
		return File{}, fmt.Errorf("config: decode: %w", err)
	}
	return f, nil
}

// Merge layers override on top of base; non-zero override values win, so a
// false or empty override never clears a value set in base.
func Merge(base, override File) (File, error) {
	if err := mergo.Merge(&base, override, mergo.WithOverride); err != nil {
		return File{}, fmt.Errorf("config: merge: %w", err)
	}
	return base, nil
}

// ReaderOptions converts the settings into reader options. The delimiter
// must already be resolved if it was AutoDelimiter.
func (f File) ReaderOptions() (csv.ReaderOptions, error) {
	if f.Delimiter == AutoDelimiter {
		return csv.ReaderOptions{}, fmt.Errorf("config: delimiter %q not resolved", AutoDelimiter)
	}

	mapHeaders, err := HeaderMapper(f.MapHeaders)
	if err != nil {
		return csv.ReaderOptions{}, err
	}

	return csv.ReaderOptions{
		Strict:          f.Strict,
		Headers:         f.Headers,
		HeaderNames:     f.HeaderNames,
		Quote:           Unescape(f.Quote),
		Escape:          Unescape(f.Escape),
		Delimiter:       Unescape(f.Delimiter),
		Newline:         Unescape(f.Newline),
		Comment:         Unescape(f.Comment),
		DisableComments: f.NoComments,
		Range:           f.Range,
		MapHeaders:      mapHeaders,
		ChunkSize:       f.ChunkSize,
	}, nil
}

var converters = map[string]csv.HeaderConverter{
	"lower": csv.LowercaseHeader,
	"upper": csv.UppercaseHeader,
	"snake": csv.SnakeCaseHeader,
	"trim":  csv.TrimHeader,
}

// HeaderMapper builds a MapHeaders function from a comma-separated list of
// converter names (lower, upper, snake, trim), applied in order. An empty
// list returns nil.
func HeaderMapper(list string) (func([]string) []string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var conv []csv.HeaderConverter
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		c, ok := converters[name]
		if !ok {
			return nil, fmt.Errorf("config: unknown header mapping %q", name)
		}
		conv = append(conv, c)
	}
	return csv.MapHeadersWith(conv...), nil
}

var unescaper = strings.NewReplacer(`\t`, "\t", `\n`, "\n", `\r`, "\r", `\\`, `\`)

// Unescape turns the shell-friendly sequences \t, \n, \r and \\ into the
// characters they name.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// normalizeKeys lowercases keys and strips dashes and underscores,
// recursively.
func normalizeKeys(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(k))
		switch nested := v.(type) {
		case map[string]any:
			out[key] = normalizeKeys(nested)
		case map[any]any:
			out[key] = normalizeKeys(cast.ToStringMap(nested))
		default:
			out[key] = v
		}
	}
	return out
}

var rangeType = reflect.TypeOf(csv.Range{})

// rangeHook accepts the compact range forms.
func rangeHook(from, to reflect.Type, data any) (any, error) {
	if to != rangeType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return csv.ParseRange(v)
	case []any:
		bounds, err := cast.ToIntSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("range: %w", err)
		}
		if len(bounds) > 2 {
			return nil, fmt.Errorf("range: expected at most 2 bounds, got %d", len(bounds))
		}
		return csv.NewRange(bounds...), nil
	case map[string]any:
		return normalizeKeys(v), nil
	}

	if from.Kind() >= reflect.Int && from.Kind() <= reflect.Float64 {
		start, err := cast.ToIntE(data)
		if err != nil {
			return nil, fmt.Errorf("range: %w", err)
		}
		return csv.NewRange(start), nil
	}
	return data, nil
}
