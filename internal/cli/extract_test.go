package cli

// Test Plan for Extract Command:
// - extract with defaults reads target/classes and src/main/java below --dir and writes Test_Data.csv
// - extract prints the completion message naming the CSV path
// - extract mirrors records into SQLite when --sqlite is set
// - flags override values from .javacorpus/config.yml
// - invalid flag values are rejected before any output is written
// - a missing classes directory fails the command
// - a failed run leaves no run row in the SQLite database
// - CLIProgressReporter prints a summary unless quiet
// - formatNumber inserts thousands separators

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/javacorpus/internal/classfile"
	"github.com/mvp-joe/javacorpus/internal/classfile/classfiletest"
	"github.com/mvp-joe/javacorpus/internal/config"
	"github.com/mvp-joe/javacorpus/internal/extractor"
)

const mainSource = `package app;

public class Main {
    /** Entry point. */
    public static void main(String[] args) {
        helper();
    }

    private static void helper() {
    }
}
`

// setupProject lays out a Maven-style project with one compiled class and its source.
func setupProject(t *testing.T, classesDir string) string {
	t.Helper()
	root := t.TempDir()

	c := classfiletest.NewClass("app/Main").DefaultConstructor()
	c.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V").
		Invoke(classfile.OpInvokestatic, "app/Main", "helper", "()V").
		Return()
	c.Method(classfile.AccPrivate|classfile.AccStatic, "helper", "()V").Return()
	c.Write(t, filepath.Join(root, classesDir))

	srcPath := filepath.Join(root, "src", "main", "java", "app", "Main.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(srcPath), 0755))
	require.NoError(t, os.WriteFile(srcPath, []byte(mainSource), 0644))
	return root
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newExtractCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExtractCommand_DefaultLayout(t *testing.T) {
	root := setupProject(t, filepath.Join("target", "classes"))

	out, err := runCommand(t, "--dir", root, "--quiet")
	require.NoError(t, err)

	csvPath := filepath.Join(root, "Test_Data.csv")
	assert.Contains(t, out, "Extraction complete. Data saved to "+csvPath+".")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "FQN,Signature,Jimple,Callees"))
	assert.True(t, strings.HasPrefix(lines[1], `"app.Main.<init>()"`))
	assert.True(t, strings.HasPrefix(lines[2], `"app.Main.main(java.lang.String[])","void main(java.lang.String[])"`))
	assert.Contains(t, lines[2], `"<app.Main: void helper()>"`)
	assert.Contains(t, lines[2], `"Entry point."`)
	assert.True(t, strings.HasPrefix(lines[3], `"app.Main.helper()"`))
}

func TestExtractCommand_SQLiteAndWorkers(t *testing.T) {
	root := setupProject(t, filepath.Join("target", "classes"))

	_, err := runCommand(t, "--dir", root, "--quiet", "--sqlite", "out/corpus.db", "--out", "out/rows.csv", "--workers", "2", "--cache-size", "16")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "out", "rows.csv"))
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", filepath.Join(root, "out", "corpus.db"))
	require.NoError(t, err)
	defer db.Close()

	var records int
	var algorithm string
	require.NoError(t, db.QueryRow("SELECT records, algorithm FROM runs").Scan(&records, &algorithm))
	assert.Equal(t, 3, records)
	assert.Equal(t, "rta", algorithm)
}

func TestExtractCommand_FailedRunDiscardsSQLiteRun(t *testing.T) {
	root := setupProject(t, filepath.Join("target", "classes"))

	_, err := runCommand(t, "--dir", root, "--quiet", "--sqlite", "corpus.db")
	require.NoError(t, err)

	_, err = runCommand(t, "--dir", root, "--quiet", "--sqlite", "corpus.db", "--classes", "does/not/exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")

	db, err := sql.Open("sqlite3", filepath.Join(root, "corpus.db"))
	require.NoError(t, err)
	defer db.Close()

	var runs, records int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM records").Scan(&records))
	assert.Equal(t, 1, runs)
	assert.Equal(t, 3, records)
}

func TestExtractCommand_FlagsOverrideConfigFile(t *testing.T) {
	root := setupProject(t, filepath.Join("build", "classes"))

	configDir := filepath.Join(root, ".javacorpus")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yml"), []byte(`
input:
  classes_dir: does/not/exist
output:
  csv_path: from-config.csv
callgraph:
  algorithm: cha
`), 0644))

	// Config file alone points at a missing directory
	_, err := runCommand(t, "--dir", root, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")

	_, err = runCommand(t, "--dir", root, "--quiet", "--classes", "build/classes")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "from-config.csv"))
	assert.NoError(t, err)
}

func TestExtractCommand_RejectsInvalidFlags(t *testing.T) {
	root := setupProject(t, filepath.Join("target", "classes"))

	_, err := runCommand(t, "--dir", root, "--quiet", "--algorithm", "spark")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidAlgorithm)

	_, err = runCommand(t, "--dir", root, "--quiet", "--workers", "-1")
	assert.ErrorIs(t, err, config.ErrInvalidWorkers)

	_, err = os.Stat(filepath.Join(root, "Test_Data.csv"))
	assert.True(t, os.IsNotExist(err))

	_, err = runCommand(t, "--dir", root, "unexpected")
	assert.Error(t, err)
}

func TestCLIProgressReporter(t *testing.T) {
	t.Parallel()

	stats := &extractor.Stats{Records: 1234, Methods: 1240, Matched: 1000, SourcesMissing: 2, Duration: 1500 * time.Millisecond}

	var out bytes.Buffer
	reporter := NewCLIProgressReporter(&out, false)
	reporter.OnLoadStart("target/classes")
	reporter.OnLoadComplete(3, 2)
	reporter.OnClassProcessed("a.B", 3)
	reporter.OnMethodSkipped("<a.B: void c()>", assert.AnError)
	reporter.OnClassProcessed("a.C", 1)
	reporter.OnComplete(stats)

	assert.Contains(t, out.String(), "Extracted 1,234 records from 1,240 methods in 1.5s")
	assert.Contains(t, out.String(), "Skipped methods:   1")
	assert.Contains(t, out.String(), "Missing sources:   2")

	var quiet bytes.Buffer
	silent := NewCLIProgressReporter(&quiet, true)
	silent.OnLoadComplete(3, 2)
	silent.OnClassProcessed("a.B", 3)
	silent.OnComplete(stats)
	assert.Empty(t, quiet.String())
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in))
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "javacorpus dev")
}
