package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/anime-shed/ecoscan-go/internal/capture"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceForRequiresExactlyOneSource(t *testing.T) {
	tests := []struct {
		name  string
		flags scanFlags
	}{
		{"none", scanFlags{camera: -1}},
		{"file and url", scanFlags{file: "a.jpg", url: "https://example.com/a.jpg", camera: -1}},
		{"file and camera", scanFlags{file: "a.jpg", camera: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sourceFor(tt.flags, nil)
			assert.Error(t, err)
		})
	}
}

func TestSourceForFileAndURL(t *testing.T) {
	src, err := sourceFor(scanFlags{file: "label.jpg", camera: -1}, nil)
	require.NoError(t, err)
	assert.IsType(t, &capture.FileSource{}, src)

	src, err = sourceFor(scanFlags{url: "https://example.com/a.jpg", camera: -1}, nil)
	require.NoError(t, err)
	assert.IsType(t, &capture.URLSource{}, src)
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "scan", "history", "recycle"} {
		assert.True(t, names[want], want)
	}

	sub := map[string]bool{}
	for _, c := range historyCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["list"] && sub["clear"] && sub["export"])
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"score": 65}))
	assert.True(t, strings.Contains(buf.String(), `"score": 65`))
}
