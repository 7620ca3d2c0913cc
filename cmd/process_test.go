package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"faultline/internal/domain/valueobject"

	"github.com/stretchr/testify/assert"
)

func TestExecuteProcessPipeline(t *testing.T) {
	t.Run("should render the same exception the pipeline handled", func(t *testing.T) {
		exceptionContext := valueobject.NewExceptionContext(valueobject.ExceptionContextParams{
			Source: valueobject.MustSourceTag(valueobject.SourceCLI),
		})

		result, exception, err := executeProcessPipeline(
			context.Background(), "Connection timeout", exceptionContext)

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.NotNil(t, exception)
		assert.Equal(t, result.ExceptionID, exception.ID())
		assert.Equal(t, valueobject.CategoryExternal, exception.Category().String())
	})
}

func TestProcessCommand(t *testing.T) {
	runCommand := func(t *testing.T, args ...string) (processOutput, error) {
		t.Helper()

		cmd := newProcessCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)
		cmd.SetArgs(args)

		if err := cmd.Execute(); err != nil {
			return processOutput{}, err
		}

		var output processOutput
		assert.NoError(t, json.Unmarshal(buf.Bytes(), &output))
		return output, nil
	}

	t.Run("should print the classification of the handled fault", func(t *testing.T) {
		output, err := runCommand(t, "--message", "Connection timeout", "--output", "json")

		assert.NoError(t, err)
		assert.True(t, output.Result.Success)
		assert.NotEmpty(t, output.Result.ExceptionID)
		assert.Equal(t, valueobject.CategoryExternal, output.Classification.Category)
		assert.Equal(t, "NETWORK_ERROR", output.Classification.Code)
		assert.NotNil(t, output.Response)
	})

	t.Run("should stamp the response with the handled exception's timestamp", func(t *testing.T) {
		output, err := runCommand(t, "--message", "boom", "--output", "json")

		assert.NoError(t, err)
		assert.NotNil(t, output.Response)
		assert.False(t, output.Response.Timestamp.IsZero())
	})

	t.Run("should process a JSON fault document from a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fault.json")
		document := `{"message": "boom", "status": 503, "response": {"detail": "upstream exploded"}}`
		assert.NoError(t, os.WriteFile(path, []byte(document), 0o600))

		output, err := runCommand(t, "--fault-file", path, "--output", "json")

		assert.NoError(t, err)
		assert.True(t, output.Result.Success)
		assert.Equal(t, valueobject.CategoryHTTP, output.Classification.Category)
		assert.Equal(t, "HTTP_503", output.Classification.Code)
	})

	t.Run("should reject an unknown output format", func(t *testing.T) {
		_, err := runCommand(t, "--message", "boom", "--output", "toml")
		assert.Error(t, err)
	})
}

func TestLoadFault(t *testing.T) {
	t.Run("should require exactly one fault input", func(t *testing.T) {
		_, err := loadFault("", "")
		assert.Error(t, err)

		_, err = loadFault("boom", "somewhere.json")
		assert.Error(t, err)
	})

	t.Run("should pass a plain message through as a string", func(t *testing.T) {
		fault, err := loadFault("boom", "")
		assert.NoError(t, err)
		assert.Equal(t, "boom", fault)
	})

	t.Run("should reject an unreadable or malformed file", func(t *testing.T) {
		_, err := loadFault("", filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)

		path := filepath.Join(t.TempDir(), "bad.json")
		assert.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err = loadFault("", path)
		assert.Error(t, err)
	})
}
