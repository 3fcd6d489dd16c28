package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitChain(t *testing.T) {
	tests := []struct {
		name         string
		args         string
		wantGlobals  []string
		wantSegments [][]string
	}{
		{
			name:         "globals repeated for every command",
			args:         "-p mitmproxy sdist upload-snapshot --sdist",
			wantGlobals:  []string{"-p", "mitmproxy"},
			wantSegments: [][]string{{"sdist"}, {"upload-snapshot", "--sdist"}},
		},
		{
			name:         "positional argument stays with its command",
			args:         "--release-dir=/tmp/release set-version 0.18 contributors",
			wantGlobals:  []string{"--release-dir=/tmp/release"},
			wantSegments: [][]string{{"set-version", "0.18"}, {"contributors"}},
		},
		{
			name:         "bool global takes no value",
			args:         "--debug sdist bdist",
			wantGlobals:  []string{"--debug"},
			wantSegments: [][]string{{"sdist"}, {"bdist"}},
		},
		{
			name:         "flag value naming a command",
			args:         "upload-release --repository sdist --no-wheel",
			wantSegments: [][]string{{"upload-release", "--repository", "sdist", "--no-wheel"}},
		},
		{
			name:         "negated switch takes no value",
			args:         "bdist --no-use-existing-sdist sdist",
			wantSegments: [][]string{{"bdist", "--no-use-existing-sdist"}, {"sdist"}},
		},
		{
			name:         "global after the first command",
			args:         "sdist -p netlib bdist",
			wantSegments: [][]string{{"sdist", "-p", "netlib"}, {"bdist"}},
		},
		{
			name:         "double dash ends splitting",
			args:         "set-version -- sdist",
			wantSegments: [][]string{{"set-version", "--", "sdist"}},
		},
		{
			name:         "nested subcommand",
			args:         "secrets set PYPI_USERNAME secrets list",
			wantSegments: [][]string{{"secrets", "set", "PYPI_USERNAME"}, {"secrets", "list"}},
		},
	}

	app := newApp(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globals, segments := splitChain(app.rootCommand(), strings.Fields(tt.args))
			assert.Equal(t, tt.wantGlobals, globals)
			assert.Equal(t, tt.wantSegments, segments)
		})
	}
}

func TestSplitChainWithoutCommand(t *testing.T) {
	app := newApp(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})

	for _, args := range []string{"", "--version", "-p netlib", "frobnicate sdist", "help sdist", "-- sdist"} {
		t.Run(args, func(t *testing.T) {
			_, segments := splitChain(app.rootCommand(), strings.Fields(args))
			assert.Nil(t, segments)
		})
	}
}
