package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ReviewHub/internal/stress"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer

	code := run([]string{"-writers", "3", "-reviews", "20", "-readers", "2", "-products", "2", "-log-level", "error"}, &out)
	require.Equal(t, exitOK, code)

	var rep stress.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	require.Equal(t, 60, rep.Writes)
	require.Empty(t, rep.Violations)
}

func TestRun_BadFlag(t *testing.T) {
	require.Equal(t, exitUsage, run([]string{"-writers", "many"}, &bytes.Buffer{}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRun_ReportWriteFails(t *testing.T) {
	code := run([]string{"-writers", "1", "-reviews", "1", "-readers", "-1", "-log-level", "error"}, failingWriter{})
	require.Equal(t, exitAborted, code)
}
