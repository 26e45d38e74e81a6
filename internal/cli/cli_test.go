package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/fatih/color"
)

const contractsCSV = "Contract Name,Vendor,Monthly Cost\nCRM,Salesforce,150\nChat,Slack,abc\n"

func init() {
	color.NoColor = true
}

// run executes importctl with args and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("STAGING_DRIVER", "disk")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// --- schemas ---

func TestSchemas(t *testing.T) {
	out, _, err := run(t, "schemas")
	if err != nil {
		t.Fatalf("schemas error = %v", err)
	}
	for _, want := range []string{"contracts", "assets", "employees"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSchemas_Detail(t *testing.T) {
	out, _, err := run(t, "schemas", "contracts")
	if err != nil {
		t.Fatalf("schemas contracts error = %v", err)
	}
	if !strings.Contains(out, "Nom du contrat") {
		t.Errorf("output missing field label:\n%s", out)
	}

	_, _, err = run(t, "schemas", "invoices")
	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("schemas invoices error = %v, want *core.SchemaError", err)
	}
}

// --- template ---

func TestTemplate(t *testing.T) {
	out, _, err := run(t, "template", "contracts", "-o", "-")
	if err != nil {
		t.Fatalf("template error = %v", err)
	}
	if !strings.HasPrefix(out, "Nom du contrat,Fournisseur,Coût mensuel") {
		t.Errorf("template = %q", out)
	}

	path := filepath.Join(t.TempDir(), "staff.xlsx")
	if _, _, err := run(t, "template", "employees", "--format", "xlsx", "-o", path); err != nil {
		t.Fatalf("template xlsx error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("xlsx template is not a zip archive")
	}

	if _, _, err := run(t, "template", "contracts", "--format", "pdf"); err == nil {
		t.Error("template with unsupported format should fail")
	}
}

// --- preview ---

func TestPreview(t *testing.T) {
	path := writeFile(t, "contracts.csv", contractsCSV)

	out, _, err := run(t, "preview", path, "contracts")
	if err != nil {
		t.Fatalf("preview error = %v", err)
	}
	for _, want := range []string{"Rows: 2", "Salesforce", "Contract Name"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPreview_Unsupported(t *testing.T) {
	path := writeFile(t, "contracts.pdf", "%PDF")

	_, _, err := run(t, "preview", path, "contracts")
	var fileErr *core.FileError
	if !errors.As(err, &fileErr) {
		t.Errorf("preview error = %v, want *core.FileError", err)
	}
}

// --- import ---

func TestImport_DryRun(t *testing.T) {
	path := writeFile(t, "contracts.csv", contractsCSV)

	out, _, err := run(t, "import", path, "contracts", "--dry-run")
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	for _, want := range []string{"Dry run complete", "Total:    2", "Imported: 1", "Failed:   1", "monthly_cost"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestImport_MapOverrideLeavesRequiredFieldUnmapped(t *testing.T) {
	path := writeFile(t, "contracts.csv", contractsCSV)

	_, stderr, err := run(t, "import", path, "contracts", "--dry-run", "--map", "provider=")
	var mappingErr *core.MappingError
	if !errors.As(err, &mappingErr) {
		t.Fatalf("import error = %v, want *core.MappingError", err)
	}
	if !reflect.DeepEqual(mappingErr.Missing, []string{"provider"}) {
		t.Errorf("Missing = %v, want [provider]", mappingErr.Missing)
	}
	if !strings.Contains(stderr, "Columns in file: Contract Name, Vendor, Monthly Cost") {
		t.Errorf("stderr missing column list:\n%s", stderr)
	}
}

func TestImport_UnknownEntity(t *testing.T) {
	path := writeFile(t, "contracts.csv", contractsCSV)

	_, _, err := run(t, "import", path, "invoices", "--dry-run")
	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("import error = %v, want *core.SchemaError", err)
	}
}

func TestImport_MissingFile(t *testing.T) {
	_, _, err := run(t, "import", filepath.Join(t.TempDir(), "nope.csv"), "contracts", "--dry-run")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("import error = %v, want os.ErrNotExist", err)
	}
}

func TestParseMapFlags(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    core.FieldMapping
		wantErr bool
	}{
		{"empty", nil, core.FieldMapping{}, false},
		{"pairs", []string{"name=Contract Name", " provider = Vendor "}, core.FieldMapping{"name": "Contract Name", "provider": "Vendor"}, false},
		{"column with equals", []string{"description=a=b"}, core.FieldMapping{"description": "a=b"}, false},
		{"unmap", []string{"status="}, core.FieldMapping{"status": ""}, false},
		{"no separator", []string{"name"}, nil, true},
		{"no field", []string{"=Vendor"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMapFlags(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMapFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseMapFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"mapped error", &core.SchemaError{EntityType: "invoices"}, "(Code: SCH001)"},
		{"unknown error", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderError(&buf, tt.err)
			got := buf.String()
			if tt.want == "" && got != "" {
				t.Errorf("renderError() = %q, want nothing", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("renderError() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestCell(t *testing.T) {
	long := strings.Repeat("x", 40)
	short := "Salesforce"

	if got := cell(nil); got != "" {
		t.Errorf("cell(nil) = %q, want empty", got)
	}
	if got := cell(&short); got != short {
		t.Errorf("cell(%q) = %q", short, got)
	}
	if got := []rune(cell(&long)); len(got) != maxCellWidth {
		t.Errorf("len(cell(long)) = %d, want %d", len(got), maxCellWidth)
	}
}
