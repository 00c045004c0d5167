/*
 * @module service/executor/script_runner
 * @description 清洗脚本运行器：Go 脚本由 yaegi 解释执行，其它脚本以子进程方式运行
 * @architecture 策略模式 - 按脚本类型选择运行器
 * @documentReference dev_docs/requirements.md#12
 * @stateFlow 选择运行器 -> 注入参数 -> 执行 -> 收集 stdout/stderr/退出码
 * @rules 超时按失败处理；Go 脚本必须提供 func Run(params map[string]interface{}) (interface{}, error)
 * @dependencies github.com/traefik/yaegi, os/exec
 * @refs service/executor/executor.go
 */

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ErrScriptTimeout 脚本执行超时
var ErrScriptTimeout = errors.New("脚本执行超时")

// ScriptArgs 脚本入参
type ScriptArgs struct {
	PlanPath   string
	InputPath  string
	OutputPath string
}

// ScriptResult 脚本执行结果
type ScriptResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ScriptRunner 脚本运行器
type ScriptRunner interface {
	Run(ctx context.Context, script string, args ScriptArgs) (*ScriptResult, error)
}

// SubprocessRunner 以子进程方式运行脚本：<bin> <script> <plan> <input> <output>
type SubprocessRunner struct {
	Bin string
}

// NewSubprocessRunner 创建子进程运行器
func NewSubprocessRunner(bin string) *SubprocessRunner {
	if bin == "" {
		bin = "python3"
	}
	return &SubprocessRunner{Bin: bin}
}

// Run 执行脚本，非零退出码不视为调用错误，由调用方判断
func (r *SubprocessRunner) Run(ctx context.Context, script string, args ScriptArgs) (*ScriptResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Bin, script, args.PlanPath, args.InputPath, args.OutputPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &ScriptResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%w: %v", ErrScriptTimeout, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("启动脚本进程失败: %w", err)
	}
	return result, nil
}

// YaegiRunner 使用 yaegi 解释执行 Go 脚本
type YaegiRunner struct{}

// NewYaegiRunner 创建 yaegi 运行器
func NewYaegiRunner() *YaegiRunner {
	return &YaegiRunner{}
}

// Run 加载脚本文件并调用其中的 Run 函数
func (r *YaegiRunner) Run(ctx context.Context, script string, args ScriptArgs) (*ScriptResult, error) {
	src, err := os.ReadFile(script)
	if err != nil {
		return nil, fmt.Errorf("读取脚本失败: %w", err)
	}

	var stdout, stderr bytes.Buffer
	fn, err := r.compile(string(src), &stdout, &stderr)
	if err != nil {
		return &ScriptResult{Stderr: err.Error(), ExitCode: 1}, nil
	}

	params := map[string]interface{}{
		"plan_path":   args.PlanPath,
		"input_path":  args.InputPath,
		"output_path": args.OutputPath,
	}

	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("脚本运行时异常: %v", p)}
			}
		}()
		v, err := fn(params)
		done <- outcome{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		// 解释器无法被中断，脚本协程仍可能写入缓冲区，不再读取其输出
		return &ScriptResult{ExitCode: -1}, fmt.Errorf("%w: %v", ErrScriptTimeout, ctx.Err())
	case out := <-done:
		if out.value != nil {
			fmt.Fprintln(&stdout, out.value)
		}
		result := &ScriptResult{Stdout: stdout.String(), Stderr: stderr.String()}
		if out.err != nil {
			result.Stderr += out.err.Error()
			result.ExitCode = 1
		}
		return result, nil
	}
}

func (r *YaegiRunner) compile(src string, stdout, stderr *bytes.Buffer) (func(map[string]interface{}) (interface{}, error), error) {
	i := interp.New(interp.Options{Stdout: stdout, Stderr: stderr})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("脚本编译失败: %w", err)
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Run 函数: %w", err)
	}

	runFunc, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}
	return runFunc, nil
}

// runnerFor 按脚本扩展名选择运行器
func runnerFor(script string, goRunner, defaultRunner ScriptRunner) ScriptRunner {
	if strings.EqualFold(filepath.Ext(script), ".go") {
		return goRunner
	}
	return defaultRunner
}
