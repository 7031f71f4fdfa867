package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Error("DUPLICATE", "copy already held", map[string]string{"request": "r1"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DUPLICATE", resp.Error.Code)
	assert.Equal(t, "copy already held", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("all good"))
	assert.Equal(t, "all good\n", buf.String())
}

func TestOutputFormatter_TextRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(LoadResult{Source: "dir.yaml", Loaded: 4}))
	assert.Equal(t, "Loaded 4 facilities from dir.yaml\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("EXPIRED", "too old", nil))
	assert.Equal(t, "Error [EXPIRED]: too old\n", buf.String())
}

func TestExitError(t *testing.T) {
	inner := errors.New("boom")
	err := WrapExitError(ExitCommandError, "failed to open database", inner)

	assert.Equal(t, "failed to open database: boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", err)))

	plain := NewExitError(ExitFailure, "payload rejected")
	assert.Equal(t, "payload rejected", plain.Error())
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("other")))
}

func TestReportedExitError(t *testing.T) {
	inner := errors.New("DUPLICATE")
	err := ReportedExitError(ExitFailure, "payload rejected", inner)

	assert.True(t, IsReported(err))
	assert.True(t, IsReported(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, inner)

	assert.False(t, IsReported(WrapExitError(ExitFailure, "payload rejected", inner)))
	assert.False(t, IsReported(errors.New("other")))
}
