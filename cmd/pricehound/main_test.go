package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rshade/pricehound/internal/cli"
	"github.com/rshade/pricehound/internal/engine"
	"github.com/rshade/pricehound/pkg/version"
)

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version.GetVersion())
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		if assert.NotNil(t, root) {
			assert.Equal(t, "pricehound", root.Use)
			assert.Equal(t, version.GetVersion(), root.Version)
		}
	})
}

func TestExitCode(t *testing.T) {
	_, parseErr := engine.ParseQuery("abc")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "query error", err: parseErr, want: exitQueryError},
		{name: "wrapped query error", err: fmt.Errorf("outer: %w", parseErr), want: exitQueryError},
		{name: "joined query error", err: errors.Join(errors.New("save"), parseErr), want: exitQueryError},
		{name: "generic error", err: errors.New("boom"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
