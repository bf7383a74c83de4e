package cli

import (
	"bytes"
	"github.com/goccy/go-json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCommand(t *testing.T, format, dir string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidSpecs(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})

	output, err := runValidateCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ All specs valid (2 entity(ies), 4 query(ies))")
}

func TestValidateValidSpecsJSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})

	output, err := runValidateCommand(t, "json", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	output, err := runValidateCommand(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, output, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	output, err := runValidateCommand(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, output, "no CUE files found")
}

func TestValidateNoSections(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"empty.cue": "package test\n\nname: \"nothing\"\n"})

	output, err := runValidateCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "no entities or queries found")
}

func TestValidateInvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec string
		code string
	}{
		{
			name: "missing primary key",
			spec: `entity: Note: columns: Text: "string"`,
			code: "E103",
		},
		{
			name: "unknown column type",
			spec: `entity: Note: columns: {
	Id:   {type: "int64", pk: true}
	Text: "varchar"
}`,
			code: "E104",
		},
		{
			name: "string version column",
			spec: `entity: Note: columns: {
	Id:      {type: "int64", pk: true}
	Version: {type: "string", version: true}
}`,
			code: "E106",
		},
		{
			name: "type and reference",
			spec: `entity: Note: columns: {
	Id:     {type: "int64", pk: true}
	Parent: {type: "int64", reference: "Note"}
}`,
			code: "E107",
		},
		{
			name: "unknown operator",
			spec: `entity: Note: columns: Id: {type: "int64", pk: true}
query: q: {from: "Note", where: [{field: "Id", op: "~", value: 1}]}`,
			code: "E111",
		},
		{
			name: "null with a value",
			spec: `entity: Note: columns: Id: {type: "int64", pk: true}
query: q: {from: "Note", where: [{field: "Id", op: "null", value: 1}]}`,
			code: "E112",
		},
		{
			name: "column selected twice",
			spec: `entity: Note: columns: Id: {type: "int64", pk: true}
query: q: {from: "Note", select: ["Id", "Id"]}`,
			code: "E113",
		},
		{
			name: "zero limit",
			spec: `entity: Note: columns: Id: {type: "int64", pk: true}
query: q: {from: "Note", limit: 0}`,
			code: "E114",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeSpecs(t, map[string]string{"spec.cue": "package test\n\n" + tt.spec + "\n"})

			output, err := runValidateCommand(t, "text", dir)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, output, "✗ Validation failed")
			assert.Contains(t, output, tt.code)
		})
	}
}

func TestValidateInvalidSpecJSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"spec.cue": `package test

entity: Note: columns: Text: "string"
`})

	output, err := runValidateCommand(t, "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Field string `json:"field"`
				Code  string `json:"code"`
			} `json:"errors"`
		} `json:"data"`
		Error *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, "entity.Note.columns", resp.Data.Errors[0].Field)
	assert.Equal(t, "E103", resp.Error.Code)
}

func TestValidateReferenceCycle(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"cycle.cue": `package test

entity: A: columns: {
	Id: {type: "int64", pk: true}
	B:  {reference: "B"}
}

entity: B: columns: {
	Id: {type: "int64", pk: true}
	A:  {reference: "A"}
}
`})

	output, err := runValidateCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, "compile")
	assert.Contains(t, output, "reference cycle")
}

func TestValidateUnknownQueryColumn(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"spec.cue": `package test

entity: Note: columns: Id: {type: "int64", pk: true}
query: q: {from: "Note", orderBy: ["Missing"]}
`})

	output, err := runValidateCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, "Missing")
}

func TestValidateMultipleFiles(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"customer.cue": `package test

entity: Customer: columns: {
	Id:   {type: "int64", pk: true}
	Name: "string"
}
`,
		"queries.cue": `package test

query: names: {from: "Customer", select: ["Name"]}
`,
	})

	output, err := runValidateCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, output, "(1 entity(ies), 1 query(ies))")
}

func TestValidateVerboseOutput(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "Found 1 CUE file(s)")
	assert.Contains(t, errOut.String(), "Validating entity: Order")
	assert.Contains(t, errOut.String(), "Validating query: bigOrders")
	assert.Contains(t, out.String(), "✓ All specs valid")
}

func TestValidateSpecsDir(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})

	errs, err := ValidateSpecsDir(dir)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateSpecsDirInvalid(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"spec.cue": `package test

entity: Note: columns: {
	Id:  {type: "int64", pk: true}
	Key: {type: "int64", pk: true}
}
`})

	errs, err := ValidateSpecsDir(dir)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "E103", errs[0].Code)
	assert.Equal(t, "entity.Note.columns", errs[0].Field)
}

func TestValidateSpecsDirNonExistent(t *testing.T) {
	_, err := ValidateSpecsDir("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
