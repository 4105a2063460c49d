package server

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ironsheep/ocr-api/internal/imaging"
)

func TestParseParams_Defaults(t *testing.T) {
	p, details, err := parseParams([]byte(`{"image": "aGVsbG8="}`), false)
	if err != nil || len(details) > 0 {
		t.Fatalf("parseParams failed: %v %+v", err, details)
	}

	want := DefaultParams()
	want.Image = "aGVsbG8="
	if *p != want {
		t.Errorf("got %+v, want %+v", *p, want)
	}
	if p.Resize != 2 || p.Resample != imaging.ResampleLanczos || !p.Native || !p.Improve || p.Invert || p.Config != "" {
		t.Errorf("unexpected defaults: %+v", *p)
	}
}

func TestParseParams_AllFields(t *testing.T) {
	body := `{
		"image": "aGVsbG8=",
		"config": "--psm 6 -l eng",
		"resize": 1.5,
		"resample": 3,
		"native": false,
		"improve": false,
		"invert": true
	}`

	p, details, err := parseParams([]byte(body), false)
	if err != nil || len(details) > 0 {
		t.Fatalf("parseParams failed: %v %+v", err, details)
	}

	want := Params{
		Image:    "aGVsbG8=",
		Config:   "--psm 6 -l eng",
		Resize:   1.5,
		Resample: imaging.ResampleBicubic,
		Native:   false,
		Improve:  false,
		Invert:   true,
	}
	if *p != want {
		t.Errorf("got %+v, want %+v", *p, want)
	}
}

func TestParseParams_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"empty object", "{}"},
		{"null", "null"},
		{"array", `[{"image": "x"}]`},
		{"string", `"image"`},
		{"not json", "image=abc"},
		{"truncated", `{"image": "abc"`},
		{"trailing data", `{"image": "abc"} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseParams([]byte(tt.body), false)
			if !errors.Is(err, errBadRequest) {
				t.Errorf("got %v, want errBadRequest", err)
			}
		})
	}
}

func TestParseParams_FieldErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []FieldError
	}{
		{
			name: "missing image",
			body: `{"resize": 1}`,
			want: []FieldError{{Loc: []string{"image"}, Msg: "field required", Type: "value_error.missing"}},
		},
		{
			name: "null image",
			body: `{"image": null}`,
			want: []FieldError{{Loc: []string{"image"}, Msg: "none is not an allowed value", Type: "type_error.none.not_allowed"}},
		},
		{
			name: "image not a string is not echoed",
			body: `{"image": 12345}`,
			want: []FieldError{{Loc: []string{"image"}, Msg: "str type expected", Type: "type_error.str"}},
		},
		{
			name: "empty image",
			body: `{"image": ""}`,
			want: []FieldError{{Loc: []string{"image"}, Msg: "ensure this value has at least 1 characters", Type: "value_error.any_str.min_length"}},
		},
		{
			name: "resize zero",
			body: `{"image": "x", "resize": 0}`,
			want: []FieldError{{Loc: []string{"resize"}, Msg: "ensure this value is greater than 0", Type: "value_error.number.not_gt", Input: 0.0}},
		},
		{
			name: "resize too large",
			body: `{"image": "x", "resize": 11}`,
			want: []FieldError{{Loc: []string{"resize"}, Msg: "ensure this value is less than or equal to 10", Type: "value_error.number.not_le", Input: 11.0}},
		},
		{
			name: "resize as string",
			body: `{"image": "x", "resize": "2"}`,
			want: []FieldError{{Loc: []string{"resize"}, Msg: "value is not a valid float", Type: "type_error.float", Input: "2"}},
		},
		{
			name: "resample fractional",
			body: `{"image": "x", "resample": 1.5}`,
			want: []FieldError{{Loc: []string{"resample"}, Msg: "value is not a valid integer", Type: "type_error.integer", Input: 1.5}},
		},
		{
			name: "resample out of range",
			body: `{"image": "x", "resample": 6}`,
			want: []FieldError{{Loc: []string{"resample"}, Msg: "ensure this value is less than or equal to 5", Type: "value_error.number.not_le", Input: 6}},
		},
		{
			name: "resample negative",
			body: `{"image": "x", "resample": -1}`,
			want: []FieldError{{Loc: []string{"resample"}, Msg: "ensure this value is greater than or equal to 0", Type: "value_error.number.not_ge", Input: -1}},
		},
		{
			name: "native as string",
			body: `{"image": "x", "native": "yes"}`,
			want: []FieldError{{Loc: []string{"native"}, Msg: "value could not be parsed to a boolean", Type: "type_error.bool", Input: "yes"}},
		},
		{
			name: "config not parseable",
			body: `{"image": "x", "config": "--psm 99"}`,
			want: []FieldError{{Loc: []string{"config"}, Msg: `--psm expects an integer in [0, 13], got "99"`, Type: "value_error.config", Input: "--psm 99"}},
		},
		{
			name: "all errors collected in field order",
			body: `{"invert": 1, "resize": -2, "config": null}`,
			want: []FieldError{
				{Loc: []string{"image"}, Msg: "field required", Type: "value_error.missing"},
				{Loc: []string{"config"}, Msg: "none is not an allowed value", Type: "type_error.none.not_allowed"},
				{Loc: []string{"resize"}, Msg: "ensure this value is greater than 0", Type: "value_error.number.not_gt", Input: -2.0},
				{Loc: []string{"invert"}, Msg: "value could not be parsed to a boolean", Type: "type_error.bool", Input: 1.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, details, err := parseParams([]byte(tt.body), false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p != nil {
				t.Errorf("params should be nil on validation failure, got %+v", *p)
			}
			if !reflect.DeepEqual(details, tt.want) {
				t.Errorf("details:\n got  %#v\n want %#v", details, tt.want)
			}
		})
	}
}

func TestParseParams_UnknownFields(t *testing.T) {
	body := []byte(`{"image": "x", "lang": "eng", "dpi": 300}`)

	if _, details, err := parseParams(body, false); err != nil || len(details) > 0 {
		t.Errorf("lenient mode should ignore unknown fields: %v %+v", err, details)
	}

	_, details, err := parseParams(body, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []FieldError{
		{Loc: []string{"dpi"}, Msg: "extra fields not permitted", Type: "value_error.extra"},
		{Loc: []string{"lang"}, Msg: "extra fields not permitted", Type: "value_error.extra"},
	}
	if !reflect.DeepEqual(details, want) {
		t.Errorf("strict mode:\n got  %#v\n want %#v", details, want)
	}
}

func TestParseParams_IntegralResample(t *testing.T) {
	p, details, err := parseParams([]byte(`{"image": "x", "resample": 4.0, "resize": 3}`), false)
	if err != nil || len(details) > 0 {
		t.Fatalf("parseParams failed: %v %+v", err, details)
	}
	if p.Resample != imaging.ResampleBox {
		t.Errorf("Resample: got %v, want box", p.Resample)
	}
	if p.Resize != 3 {
		t.Errorf("Resize: got %v, want 3", p.Resize)
	}
}
