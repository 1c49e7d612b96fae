package cli

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/process"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

type funcRunner func(cmd, input string) *process.Result

func (f funcRunner) Run(_ context.Context, cmd, input string) (*process.Result, error) {
	return f(cmd, input), nil
}

func upper() funcRunner {
	return func(_ string, input string) *process.Result {
		return process.NewResult(strings.ToUpper(input), "", 0)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"SHELLFILTER_SHELL", "SHELLFILTER_FULL_LINE", "SHELLFILTER_TICK_MS", "SHELLFILTER_WORKDIR"} {
		t.Setenv(k, "")
	}
	cfg, err := config.LoadWithDirs(t.TempDir(), "")
	require.NoError(t, err)
	return cfg
}

func writeTemp(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o640))
	return path
}

func TestRunSession_Filter(t *testing.T) {
	path := writeTemp(t, "abcdefghijklmn")
	var errOut bytes.Buffer

	out, err := RunSession(context.Background(), SessionConfig{
		Config:      testConfig(t),
		File:        path,
		Kind:        task.KindReplace,
		CommandLine: "upper",
		Regions:     []document.Region{document.NewRegion(0, 5), document.NewRegion(10, 12)},
		Runner:      upper(),
		Err:         &errOut,
		Verbose:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, out.Task)

	assert.Equal(t, "abcdefghijklmn", out.Before)
	assert.Equal(t, "ABCDEfghijKLmn", out.After)
	assert.False(t, out.Failed())
	assert.Equal(t, "running upper\ndone upper\n", errOut.String())
}

func TestRunSession_InsertDefaultsToEnd(t *testing.T) {
	path := writeTemp(t, "log:")
	out, err := RunSession(context.Background(), SessionConfig{
		Config:      testConfig(t),
		File:        path,
		Kind:        task.KindInsert,
		CommandLine: "date",
		Runner: funcRunner(func(_, input string) *process.Result {
			assert.Empty(t, input)
			return process.NewResult(" today", "", 0)
		}),
		Err: &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, "log: today", out.After)
}

func TestRunSession_RegionsApplyInDocumentOrder(t *testing.T) {
	tests := []struct {
		name    string
		kind    task.Kind
		regions []document.Region
		want    string
	}{
		{
			name:    "cursors given out of order",
			kind:    task.KindInsert,
			regions: []document.Region{document.Point(10), document.Point(3)},
			want:    "012<>3456789<>abc",
		},
		{
			name:    "overlapping regions merge",
			kind:    task.KindReplace,
			regions: []document.Region{document.NewRegion(0, 5), document.NewRegion(3, 8)},
			want:    "<01234567>89abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RunSession(context.Background(), SessionConfig{
				Config:      testConfig(t),
				File:        writeTemp(t, "0123456789abc"),
				Kind:        tt.kind,
				CommandLine: "wrap",
				Regions:     tt.regions,
				Runner: funcRunner(func(_, input string) *process.Result {
					return process.NewResult("<"+input+">", "", 0)
				}),
				Err: &bytes.Buffer{},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.After)
			assert.False(t, out.Failed())
		})
	}
}

func TestRunSession_PromptsForCommand(t *testing.T) {
	path := writeTemp(t, "abc")
	var errOut bytes.Buffer
	var got string

	out, err := RunSession(context.Background(), SessionConfig{
		Config: testConfig(t),
		File:   path,
		Kind:   task.KindReplace,

		PromptForCommand: true,

		Runner: funcRunner(func(cmd, input string) *process.Result {
			got = cmd
			return process.NewResult(strings.ToUpper(input), "", 0)
		}),
		In:  strings.NewReader("tr a-z A-Z\n"),
		Err: &errOut,
	})
	require.NoError(t, err)
	require.NotNil(t, out.Task)
	assert.Equal(t, "tr a-z A-Z", got)
	assert.Equal(t, "ABC", out.After)
	assert.True(t, strings.HasPrefix(errOut.String(), "Command: "))
}

func TestRunSession_EmptyPromptStartsNothing(t *testing.T) {
	path := writeTemp(t, "abc")
	out, err := RunSession(context.Background(), SessionConfig{
		Config: testConfig(t),
		File:   path,
		Kind:   task.KindReplace,

		PromptForCommand: true,

		Runner: funcRunner(func(string, string) *process.Result {
			t.Fatal("runner must not be called")
			return nil
		}),
		In:  strings.NewReader("\n"),
		Err: &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Task)
	assert.Equal(t, "abc", out.After)
}

func TestRunSession_EmptyCommandStartsNothing(t *testing.T) {
	var errOut bytes.Buffer
	out, err := RunSession(context.Background(), SessionConfig{
		Config: testConfig(t),
		File:   writeTemp(t, "abc"),
		Kind:   task.KindReplace,
		Runner: funcRunner(func(string, string) *process.Result {
			t.Fatal("runner must not be called")
			return nil
		}),
		In:  strings.NewReader("sort\n"),
		Err: &errOut,
	})
	require.NoError(t, err)
	assert.Nil(t, out.Task)
	assert.Equal(t, "abc", out.After)
	assert.NotContains(t, errOut.String(), "Command: ")
}

func TestRunSession_FailureShowsPanel(t *testing.T) {
	path := writeTemp(t, "a b")
	var errOut bytes.Buffer
	out, err := RunSession(context.Background(), SessionConfig{
		Config:      testConfig(t),
		File:        path,
		Kind:        task.KindReplace,
		CommandLine: "check",
		Regions:     []document.Region{document.NewRegion(0, 1), document.NewRegion(2, 3)},
		Runner: funcRunner(func(_, input string) *process.Result {
			if input == "a" {
				return process.NewResult("", "bad a", 1)
			}
			return process.NewResult("B", "", 0)
		}),
		Err: &errOut,
	})
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Equal(t, " B", out.After)
	assert.Contains(t, errOut.String(), "--- external_command_errors ---\nShell returned 1:\nbad a\n")
}

func TestRunSession_Errors(t *testing.T) {
	cfg := testConfig(t)

	_, err := RunSession(context.Background(), SessionConfig{Config: cfg, File: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	bin := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.WriteFile(bin, []byte{0xff, 0xfe}, 0o600))
	_, err = RunSession(context.Background(), SessionConfig{Config: cfg, File: bin})
	assert.ErrorContains(t, err, "not valid UTF-8")

	_, err = RunSession(context.Background(), SessionConfig{
		Config:  cfg,
		File:    writeTemp(t, "abc"),
		Regions: []document.Region{document.NewRegion(1, 9)},
		Runner:  upper(),
	})
	assert.ErrorContains(t, err, "outside document")
}

func TestWriteOutcome(t *testing.T) {
	path := writeTemp(t, "abc")
	out, err := RunSession(context.Background(), SessionConfig{
		Config:      testConfig(t),
		File:        path,
		Kind:        task.KindReplace,
		CommandLine: "upper",
		Runner:      upper(),
		Err:         &bytes.Buffer{},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, out, actionFlags{}, false))
	assert.Equal(t, "ABC", buf.String())

	buf.Reset()
	require.NoError(t, writeOutcome(&buf, out, actionFlags{diff: true}, false))
	assert.Contains(t, buf.String(), "-abc")
	assert.Contains(t, buf.String(), "+ABC")

	buf.Reset()
	require.NoError(t, writeOutcome(&buf, out, actionFlags{json: true}, false))
	assert.Equal(t, "succeeded", gjson.Get(buf.String(), "state").String())
	assert.Equal(t, path, gjson.Get(buf.String(), "file").String())

	buf.Reset()
	require.NoError(t, writeOutcome(&buf, out, actionFlags{write: true}, false))
	assert.Empty(t, buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestWriteOutcome_NothingStarted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, &Outcome{Before: "x", After: "x"}, actionFlags{}, false))
	assert.Empty(t, buf.String())
}

func TestParseRegions(t *testing.T) {
	regions, err := parseRegions([]string{"0:5", "12:10", "7"})
	require.NoError(t, err)
	assert.Equal(t, []document.Region{{Begin: 0, End: 5}, {Begin: 10, End: 12}, {Begin: 7, End: 7}}, regions)

	_, err = parseRegions([]string{"a:b"})
	assert.Error(t, err)
}

func TestResolveWorkingDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "doc.txt")

	dir, err := resolveWorkingDir(config.WorkdirFile, file)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(file), dir)

	dir, err = resolveWorkingDir(config.WorkdirRepo, file)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(file), dir) // not a repository

	wd, err := os.Getwd()
	require.NoError(t, err)
	dir, err = resolveWorkingDir(config.WorkdirCwd, file)
	require.NoError(t, err)
	assert.Equal(t, wd, dir)

	_, err = resolveWorkingDir("elsewhere", file)
	assert.Error(t, err)
}

func TestPrintConfig(t *testing.T) {
	var buf bytes.Buffer
	printConfig(&buf, testConfig(t))
	out := buf.String()
	assert.Contains(t, out, "# Shellfilter Configuration")
	assert.Contains(t, out, "  - embedded")
	assert.Contains(t, out, "(none detected)")
	assert.Contains(t, out, "tick_interval_ms: 100")
}

func TestFilterCommand_EndToEnd(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	testConfig(t)
	path := writeTemp(t, "b\na\n")

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"filter", path, "-c", "sort", "--shell", "/bin/sh"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "a\nb\n", stdout.String())
}

func TestFilterCommand_FailureExitsWithError(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	testConfig(t)
	path := writeTemp(t, "x")

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"filter", path, "-c", "echo nope >&2; exit 3", "-w"})
	err := root.Execute()
	require.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, stderr.String(), "Shell returned 3:\nnope")

	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	assert.Equal(t, "", string(data))
}

func TestInsertCommand_RejectsNegativeOffset(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"insert", "f", "-c", "date", "--at", "-1"})
	assert.ErrorContains(t, root.Execute(), "must not be negative")
}
