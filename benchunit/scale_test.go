// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import "testing"

func TestScale(t *testing.T) {
	var cls Class
	test := func(num float64, want string) {
		t.Helper()
		if got := Scale(num, cls); got != want {
			t.Errorf("for %v (%v), got %s, want %s", num, cls, got, want)
		}
	}

	cls = Decimal
	test(0, "0.000")
	test(1, "1.000")
	test(-1, "-1.000")
	test(12.5, "12.50")
	test(123.25, "123.2")
	test(999.96, "1.000k")
	test(123456, "123.5k")
	test(2.5e9, "2.500G")
	test(0.25, "250.0m")
	test(0.0005, "500.0µ")

	cls = Binary
	test(0, "0.000")
	test(1, "1.000")
	test(512, "512.0")
	test(2048, "2.000Ki")
	test(1020*1024, "1020.0Ki")
	test(3*(1<<20), "3.000Mi")
	test(0.5, "0.5000")
	test(0.05, "0.05000")
}

func TestCommonScale(t *testing.T) {
	s := CommonScale([]float64{0, 1500, 2500000}, Decimal)
	if want := (Scaler{3, 1e3, "k"}); s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
	if got := s.Format(2500000); got != "2500.000k" {
		t.Errorf("got %s, want 2500.000k", got)
	}
}

func TestNoOpScaler(t *testing.T) {
	test := func(val float64, want string) {
		t.Helper()
		got := NoOpScaler.Format(val)
		if got != want {
			t.Errorf("for %v, got %s, want %s", val, got, want)
		}
	}

	test(1, "1")
	test(123456789, "123456789")
	test(123.456789, "123.456789")
}

func TestParseMemUnit(t *testing.T) {
	for _, test := range []struct {
		in     string
		want   MemUnit
		factor float64
	}{
		{"b", Bytes, 1},
		{"bytes", Bytes, 1},
		{"k", KiB, 1024},
		{"KiB", KiB, 1024},
		{"m", MiB, 1048576},
		{"MiBs", MiB, 1048576},
	} {
		got, err := ParseMemUnit(test.in)
		if err != nil {
			t.Errorf("ParseMemUnit(%q): %v", test.in, err)
			continue
		}
		if got != test.want || got.Factor() != test.factor {
			t.Errorf("ParseMemUnit(%q) = %v (factor %v), want %v (factor %v)", test.in, got, got.Factor(), test.want, test.factor)
		}
	}
	if _, err := ParseMemUnit("g"); err == nil {
		t.Errorf("ParseMemUnit(\"g\") succeeded, want error")
	}
	if got := KiB.Convert(110); got != 110.0/1024 {
		t.Errorf("KiB.Convert(110) = %v", got)
	}
}

func TestClassOf(t *testing.T) {
	for label, want := range map[string]Class{
		"ms":              Decimal,
		"KiB":             Binary,
		"heap (MiB)":      Binary,
		"bytes":           Binary,
		"objects":         Decimal,
		"number of Bytes": Decimal,
	} {
		if got := ClassOf(label); got != want {
			t.Errorf("ClassOf(%q) = %v, want %v", label, got, want)
		}
	}
}
