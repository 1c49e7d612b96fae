package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/process"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

type upperRunner struct{}

func (upperRunner) Run(_ context.Context, _ string, input string) (*process.Result, error) {
	if input == "bad" {
		return process.NewResult("", "nope", 3), nil
	}
	return process.NewResult(strings.ToUpper(input), "", 0), nil
}

type immediate struct{}

func (immediate) Post(fn func()) bool { fn(); return true }

func runTask(t *testing.T, text string, sels ...document.Region) (*task.Task, string) {
	t.Helper()
	v := document.NewBuffer(text, nil).NewView()
	v.SetSelections(sels...)
	tk := task.New(task.KindReplace, v, "upper", task.Options{}, task.Config{
		Runner: upperRunner{}, Dispatcher: immediate{},
	})
	require.NoError(t, tk.Start())
	select {
	case <-tk.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
	return tk, v.Buffer().Text()
}

func TestDiff(t *testing.T) {
	assert.Empty(t, Diff("f.txt", "same\n", "same\n"))

	d := Diff("f.txt", "one\ntwo\n", "one\nTWO\n")
	assert.Contains(t, d, "--- a/f.txt")
	assert.Contains(t, d, "+++ b/f.txt")
	assert.Contains(t, d, "-two")
	assert.Contains(t, d, "+TWO")
}

func TestJSON_Succeeded(t *testing.T) {
	before := "abc def"
	tk, after := runTask(t, before, document.NewRegion(0, 3))
	r := FromTask("notes.txt", tk, before, after)

	js, err := r.JSON(false)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(js))

	assert.Equal(t, "notes.txt", gjson.GetBytes(js, "file").String())
	assert.Equal(t, "replace", gjson.GetBytes(js, "kind").String())
	assert.Equal(t, "upper", gjson.GetBytes(js, "command").String())
	assert.Equal(t, "succeeded", gjson.GetBytes(js, "state").String())
	assert.True(t, gjson.GetBytes(js, "changed").Bool())
	assert.Equal(t, int64(1), gjson.GetBytes(js, "regions.#").Int())
	assert.Equal(t, int64(3), gjson.GetBytes(js, "regions.0.end").Int())
	assert.Equal(t, int64(0), gjson.GetBytes(js, "regions.0.returncode").Int())
	assert.False(t, gjson.GetBytes(js, "regions.0.stderr").Exists())
	assert.Equal(t, int64(0), gjson.GetBytes(js, "failures.#").Int())

	assert.False(t, Failed(js))
	assert.Equal(t, `replace "upper": succeeded, 1 region(s)`, Summary(js))
}

func TestJSON_Failed(t *testing.T) {
	before := "bad ok"
	tk, after := runTask(t, before, document.NewRegion(0, 3), document.NewRegion(4, 6))
	assert.Equal(t, " OK", after)

	js, err := FromTask("f", tk, before, after).JSON(false)
	require.NoError(t, err)

	assert.Equal(t, "failed", gjson.GetBytes(js, "state").String())
	assert.Equal(t, int64(3), gjson.GetBytes(js, "regions.0.returncode").Int())
	assert.Equal(t, "nope", gjson.GetBytes(js, "regions.0.stderr").String())
	assert.Equal(t, "Shell returned 3:\nnope", gjson.GetBytes(js, "failures.0").String())
	assert.True(t, Failed(js))
	assert.Equal(t, `replace "upper": failed, 2 region(s), 1 failure(s)`, Summary(js))
}

func TestJSON_Unchanged(t *testing.T) {
	js, err := Report{Kind: "insert", Command: "true", State: "succeeded"}.JSON(false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gjson.GetBytes(js, "regions.#").Int())
	assert.Equal(t, `insert "true": succeeded, 0 region(s), unchanged`, Summary(js))
}

func TestJSON_Color(t *testing.T) {
	js, err := Report{Kind: "insert", Command: "date", State: "cancelled"}.JSON(true)
	require.NoError(t, err)
	assert.Contains(t, string(js), "\x1b[")
}

func TestSummary_Invalid(t *testing.T) {
	assert.Equal(t, "invalid report", Summary([]byte("{")))
}
