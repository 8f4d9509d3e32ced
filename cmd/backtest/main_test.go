package main

import (
	"reflect"
	"strings"
	"testing"

	"quantfuse/internal/domain"
)

func TestNormalizeSymbols(t *testing.T) {
	symbols, err := normalizeSymbols("tcs, INFY,tcs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"TCS", "INFY"}
	if !reflect.DeepEqual(symbols, expected) {
		t.Fatalf("expected %v, got %v", expected, symbols)
	}

	if _, err := normalizeSymbols(" ,, "); err == nil {
		t.Fatal("expected empty symbol error")
	}
}

func TestParseOptions(t *testing.T) {
	getenv := func(key string) string { return "" }

	opts, err := parseOptions([]string{"--symbols", "TCS,INFY"}, getenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(opts.symbols, []string{"TCS", "INFY"}) {
		t.Fatalf("unexpected symbols: %v", opts.symbols)
	}

	opts, err = parseOptions(nil, getenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(opts.symbols, domain.DefaultSymbols) {
		t.Fatalf("expected default symbols, got %v", opts.symbols)
	}
}

func TestParseOptionsSymbolsFromEnv(t *testing.T) {
	getenv := func(key string) string {
		if key == "SYMBOLS" {
			return "hdfcbank,icicibank"
		}
		return ""
	}

	opts, err := parseOptions(nil, getenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(opts.symbols, ",") != "HDFCBANK,ICICIBANK" {
		t.Fatalf("expected env symbols, got %v", opts.symbols)
	}
}
