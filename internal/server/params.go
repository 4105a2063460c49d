package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/ocr-api/internal/imaging"
	"github.com/ironsheep/ocr-api/internal/ocr"
)

// errBadRequest marks a body that is not a non-empty JSON object.
var errBadRequest = errors.New("request body must be a non-empty JSON object")

// MaxResize is the largest accepted resize factor.
const MaxResize = 10

// Params are the validated fields of an /imagetostring request.
type Params struct {
	// Image is the base64 payload, still encoded.
	Image string

	// Config is passed through to the recognizer.
	Config string

	// Resize scales both dimensions; 1 disables the stage.
	Resize float64

	Resample imaging.Resample

	// Native selects the external tesseract binary; false selects the
	// in-process library.
	Native bool

	Improve bool
	Invert  bool
}

// DefaultParams returns the values used for omitted fields.
func DefaultParams() Params {
	return Params{
		Resize:   2,
		Resample: imaging.ResampleLanczos,
		Native:   true,
		Improve:  true,
	}
}

// FieldError describes one failed field rule. Input echoes the offending
// value for every field except image.
type FieldError struct {
	Loc   []string `json:"loc"`
	Msg   string   `json:"msg"`
	Type  string   `json:"type"`
	Input any      `json:"input,omitempty"`
}

// paramFields lists the accepted request fields.
var paramFields = []string{"image", "config", "resize", "resample", "native", "improve", "invert"}

// parseParams decodes and validates a request body. It returns errBadRequest
// when the body is not a non-empty JSON object, and the complete list of
// field errors otherwise. With strict set, unknown fields are errors.
func parseParams(body []byte, strict bool) (*Params, []FieldError, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&fields); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return nil, nil, fmt.Errorf("%w: trailing data after object", errBadRequest)
	}
	if len(fields) == 0 {
		return nil, nil, errBadRequest
	}

	p := DefaultParams()
	var v validator

	if raw, ok := fields["image"]; !ok {
		v.fail("image", "field required", "value_error.missing", nil)
	} else if s, ok := v.str("image", raw, false); ok {
		if s == "" {
			v.fail("image", "ensure this value has at least 1 characters", "value_error.any_str.min_length", nil)
		}
		p.Image = s
	}

	if raw, ok := fields["config"]; ok {
		if s, ok := v.str("config", raw, true); ok {
			if _, err := ocr.ParseConfig(s); err != nil {
				v.fail("config", configMessage(err), "value_error.config", s)
			}
			p.Config = s
		}
	}

	if raw, ok := fields["resize"]; ok {
		if f, ok := v.number("resize", raw); ok {
			switch {
			case f <= 0:
				v.fail("resize", "ensure this value is greater than 0", "value_error.number.not_gt", f)
			case f > MaxResize:
				v.fail("resize", fmt.Sprintf("ensure this value is less than or equal to %d", MaxResize), "value_error.number.not_le", f)
			}
			p.Resize = f
		}
	}

	if raw, ok := fields["resample"]; ok {
		if n, ok := v.integer("resample", raw); ok {
			switch r := imaging.Resample(n); {
			case n < 0:
				v.fail("resample", "ensure this value is greater than or equal to 0", "value_error.number.not_ge", n)
			case !r.Valid():
				v.fail("resample", fmt.Sprintf("ensure this value is less than or equal to %d", int(imaging.ResampleHamming)), "value_error.number.not_le", n)
			default:
				p.Resample = r
			}
		}
	}

	for _, name := range []string{"native", "improve", "invert"} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		b, ok := v.boolean(name, raw)
		if !ok {
			continue
		}
		switch name {
		case "native":
			p.Native = b
		case "improve":
			p.Improve = b
		case "invert":
			p.Invert = b
		}
	}

	if strict {
		var extra []string
		for name := range fields {
			if !slices.Contains(paramFields, name) {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			v.fail(name, "extra fields not permitted", "value_error.extra", nil)
		}
	}

	if len(v.errs) > 0 {
		return nil, v.errs, nil
	}
	return &p, nil, nil
}

// validator accumulates field errors.
type validator struct {
	errs []FieldError
}

func (v *validator) fail(field, msg, typ string, input any) {
	v.errs = append(v.errs, FieldError{Loc: []string{field}, Msg: msg, Type: typ, Input: input})
}

// echo returns the decoded raw value for error reports.
func echo(raw json.RawMessage) any {
	var x any
	if err := json.Unmarshal(raw, &x); err != nil {
		return string(raw)
	}
	return x
}

func (v *validator) notNull(field string, raw json.RawMessage) bool {
	if string(bytes.TrimSpace(raw)) == "null" {
		v.fail(field, "none is not an allowed value", "type_error.none.not_allowed", nil)
		return false
	}
	return true
}

func (v *validator) str(field string, raw json.RawMessage, echoInput bool) (string, bool) {
	if !v.notNull(field, raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var input any
		if echoInput {
			input = echo(raw)
		}
		v.fail(field, "str type expected", "type_error.str", input)
		return "", false
	}
	return s, true
}

func (v *validator) number(field string, raw json.RawMessage) (float64, bool) {
	if !v.notNull(field, raw) {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || !isJSONNumber(raw) {
		v.fail(field, "value is not a valid float", "type_error.float", echo(raw))
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		v.fail(field, "value is not a valid float", "type_error.float", echo(raw))
		return 0, false
	}
	return f, true
}

func (v *validator) integer(field string, raw json.RawMessage) (int, bool) {
	if !v.notNull(field, raw) {
		return 0, false
	}
	if !isJSONNumber(raw) {
		v.fail(field, "value is not a valid integer", "type_error.integer", echo(raw))
		return 0, false
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		v.fail(field, "value is not a valid integer", "type_error.integer", echo(raw))
		return 0, false
	}
	return int(f), true
}

func (v *validator) boolean(field string, raw json.RawMessage) (bool, bool) {
	if !v.notNull(field, raw) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		v.fail(field, "value could not be parsed to a boolean", "type_error.bool", echo(raw))
		return false, false
	}
	return b, true
}

// isJSONNumber reports whether raw is a JSON number literal rather than a
// string that json.Number would also accept.
func isJSONNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// configMessage strips the sentinel prefix from a config error.
func configMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ocr.ErrInvalidConfig.Error()+": ")
}
