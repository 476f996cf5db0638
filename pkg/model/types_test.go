package model

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFieldSpecCountdownDefault(t *testing.T) {
	if got := (FieldSpec{}).Countdown(); got != DefaultCountdownSeconds {
		t.Fatalf("default countdown: got %d want %d", got, DefaultCountdownSeconds)
	}
	if got := (FieldSpec{CountdownSeconds: 5}).Countdown(); got != 5 {
		t.Fatalf("configured countdown: got %d want 5", got)
	}
}

func TestFieldSpecValidate(t *testing.T) {
	cases := []struct {
		name    string
		spec    FieldSpec
		wantErr string
	}{
		{name: "text", spec: FieldSpec{Type: FieldTypeText, Name: "email"}},
		{name: "slot without name", spec: FieldSpec{}},
		{name: "unknown type", spec: FieldSpec{Type: "color", Name: "c"}, wantErr: "unsupported type"},
		{name: "missing name", spec: FieldSpec{Type: FieldTypeDate}, wantErr: "requires a name"},
		{name: "select without options", spec: FieldSpec{Type: FieldTypeSelect, Name: "kind"}, wantErr: "requires options"},
		{name: "negative countdown", spec: FieldSpec{Type: FieldTypeValidationCode, Name: "code", CountdownSeconds: -1}, wantErr: "negative countdown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	cases := map[string]Value{
		"":        nil,
		"a@b.com": "a@b.com",
		"42":      42,
		"3.5":     3.5,
		"1700":    int64(1700),
	}
	for want, value := range cases {
		if got := FormatValue(value); got != want {
			t.Errorf("FormatValue(%#v) = %q, want %q", value, got, want)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	for _, v := range []Value{nil, "", 0, 0.0} {
		if !IsEmpty(v) {
			t.Errorf("expected %#v to be empty", v)
		}
	}
	for _, v := range []Value{"x", 1, 2.5} {
		if IsEmpty(v) {
			t.Errorf("expected %#v to be present", v)
		}
	}
}

func TestParseFormSpec(t *testing.T) {
	raw := []byte(`
title: 登录
action: /sign_in
fields:
  - type: text
    name: email
    label: 邮箱地址
  - type: validationCode
    name: code
    label: 验证码
    countdown_seconds: 30
  - type: select
    name: kind
    options:
      - {value: expenses, text: 支出}
      - {value: income, text: 收入}
  - name: ""
`)
	spec, err := ParseFormSpec(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := FormSpec{
		Title:  "登录",
		Action: "/sign_in",
		Fields: []FieldSpec{
			{Type: FieldTypeText, Name: "email", Label: "邮箱地址"},
			{Type: FieldTypeValidationCode, Name: "code", Label: "验证码", CountdownSeconds: 30},
			{Type: FieldTypeSelect, Name: "kind", Options: []Option{{Value: "expenses", Text: "支出"}, {Value: "income", Text: "收入"}}},
			{},
		},
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("form spec mismatch (-want +got):\n%s", diff)
	}

	code, ok := spec.Field("code")
	if !ok || code.Countdown() != 30 {
		t.Fatalf("expected code field with countdown 30, got %#v (ok=%v)", code, ok)
	}
}

func TestParseFormSpecRejectsDuplicates(t *testing.T) {
	raw := []byte(`
fields:
  - {type: text, name: email}
  - {type: text, name: email}
`)
	if _, err := ParseFormSpec(raw); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestParseFormSpecRejectsUnknownKeys(t *testing.T) {
	raw := []byte(`
fields:
  - {type: text, name: email, colour: red}
`)
	if _, err := ParseFormSpec(raw); err == nil {
		t.Fatal("expected unknown key to fail decoding")
	}
}
