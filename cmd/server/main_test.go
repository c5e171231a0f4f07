package main

import (
	"context"
	"log/slog"
	"testing"
)

func TestReadServerOptions_Defaults(t *testing.T) {
	for _, k := range []string{"COVER_PORT", "COVER_SPINE_TABLE", "COVER_DEFAULT_DPI", "COVER_JOB_RETRIES"} {
		t.Setenv(k, "")
	}

	cmd := newRootCmd()
	opts, err := readServerOptions(cmd)
	if err != nil {
		t.Fatalf("readServerOptions() error = %v", err)
	}
	if opts.Config.Port != "12212" {
		t.Errorf("Port = %q, want 12212", opts.Config.Port)
	}
	if opts.Config.JobRetries != 3 {
		t.Errorf("JobRetries = %d, want 3", opts.Config.JobRetries)
	}
	if opts.Logger == nil || !opts.Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Logger should be enabled at INFO level by default")
	}
	if opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger should not be enabled at DEBUG level by default")
	}
}

func TestReadServerOptions_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("COVER_PORT", "9000")
	t.Setenv("COVER_SPINE_TABLE", "legacy")

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--port", "9100", "--retries", "5", "--verbose", "--no-download"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	opts, err := readServerOptions(cmd)
	if err != nil {
		t.Fatalf("readServerOptions() error = %v", err)
	}

	if opts.Config.Port != "9100" {
		t.Errorf("Port = %q, want the flag value", opts.Config.Port)
	}
	if opts.Config.SpineTable != "legacy" {
		t.Errorf("SpineTable = %q, want the env value", opts.Config.SpineTable)
	}
	if opts.Config.JobRetries != 5 || !opts.NoDownload {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("--verbose should enable DEBUG")
	}
}

func TestReadServerOptions_Invalid(t *testing.T) {
	tests := [][]string{
		{"--spine-table", "ingram"},
		{"--log-level", "loud"},
		{"--log-format", "xml"},
		{"--retries", "0"},
	}
	for _, args := range tests {
		cmd := newRootCmd()
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("ParseFlags(%v) error = %v", args, err)
		}
		if _, err := readServerOptions(cmd); err == nil {
			t.Errorf("readServerOptions(%v) expected error", args)
		}
	}
}
