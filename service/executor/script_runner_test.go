package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const copyScript = `package main

import "os"

func Run(params map[string]interface{}) (interface{}, error) {
	data, err := os.ReadFile(params["input_path"].(string))
	if err != nil {
		return nil, err
	}
	return "copied", os.WriteFile(params["output_path"].(string), data, 0644)
}
`

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestYaegiRunner(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "output.csv")
	require.NoError(t, os.WriteFile(input, []byte("x\n1\n"), 0o644))

	runner := NewYaegiRunner()

	t.Run("执行Run函数", func(t *testing.T) {
		script := writeScript(t, "clean.go", copyScript)
		result, err := runner.Run(context.Background(), script, ScriptArgs{InputPath: input, OutputPath: output})
		require.NoError(t, err)
		assert.Equal(t, 0, result.ExitCode)
		assert.Contains(t, result.Stdout, "copied")

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "x\n1\n", string(data))
	})

	t.Run("脚本返回错误", func(t *testing.T) {
		script := writeScript(t, "fail.go", `package main

import "errors"

func Run(params map[string]interface{}) (interface{}, error) {
	return nil, errors.New("bad input")
}
`)
		result, err := runner.Run(context.Background(), script, ScriptArgs{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.ExitCode)
		assert.Contains(t, result.Stderr, "bad input")
	})

	t.Run("缺少Run函数", func(t *testing.T) {
		script := writeScript(t, "norun.go", "package main\n\nfunc Other() {}\n")
		result, err := runner.Run(context.Background(), script, ScriptArgs{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.ExitCode)
		assert.NotEmpty(t, result.Stderr)
	})

	t.Run("超时", func(t *testing.T) {
		script := writeScript(t, "slow.go", `package main

import "time"

func Run(params map[string]interface{}) (interface{}, error) {
	time.Sleep(2 * time.Second)
	return nil, nil
}
`)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		result, err := runner.Run(ctx, script, ScriptArgs{})
		assert.ErrorIs(t, err, ErrScriptTimeout)
		require.NotNil(t, result)
		assert.Equal(t, -1, result.ExitCode)
	})
}

func TestSubprocessRunner(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("缺少 /bin/sh")
	}
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "output.csv")
	require.NoError(t, os.WriteFile(input, []byte("x\n"), 0o644))

	runner := NewSubprocessRunner("sh")

	t.Run("成功", func(t *testing.T) {
		script := writeScript(t, "clean.sh", "echo \"plan=$1\"\ncp \"$2\" \"$3\"\n")
		result, err := runner.Run(context.Background(), script, ScriptArgs{PlanPath: "p.json", InputPath: input, OutputPath: output})
		require.NoError(t, err)
		assert.Equal(t, 0, result.ExitCode)
		assert.Equal(t, "plan=p.json\n", result.Stdout)

		_, err = os.Stat(output)
		assert.NoError(t, err)
	})

	t.Run("非零退出码", func(t *testing.T) {
		script := writeScript(t, "fail.sh", "echo oops >&2\nexit 3\n")
		result, err := runner.Run(context.Background(), script, ScriptArgs{})
		require.NoError(t, err)
		assert.Equal(t, 3, result.ExitCode)
		assert.Equal(t, "oops\n", result.Stderr)
	})

	t.Run("超时", func(t *testing.T) {
		script := writeScript(t, "slow.sh", "exec sleep 5\n")
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		result, err := runner.Run(ctx, script, ScriptArgs{})
		assert.ErrorIs(t, err, ErrScriptTimeout)
		assert.Equal(t, -1, result.ExitCode)
	})

	t.Run("解释器不存在", func(t *testing.T) {
		_, err := NewSubprocessRunner("no-such-interpreter-bin").Run(context.Background(), "x.py", ScriptArgs{})
		assert.Error(t, err)
	})
}

func TestRunnerFor(t *testing.T) {
	goRunner := NewYaegiRunner()
	procRunner := NewSubprocessRunner("")
	assert.Same(t, goRunner, runnerFor("clean.GO", goRunner, procRunner))
	assert.Same(t, procRunner, runnerFor("clean.py", goRunner, procRunner))
	assert.Equal(t, "python3", procRunner.Bin)
}
