package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// Drift 磁盘上的生成文件与本次生成结果不一致
type Drift struct {
	Path    string
	Missing bool   // 磁盘上不存在该文件
	Diff    string // unified diff，磁盘内容在前
}

// Check 生成但不写入，对比磁盘上已有的文件
// 生成过程中出现错误时返回 *RunError
func Check(ctx context.Context, opts *RunOptions) ([]Drift, error) {
	plan, err := BuildPlan(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings {
		opts.warn(w)
	}
	if len(plan.Errors) > 0 {
		for _, e := range plan.Errors {
			opts.report(e)
		}
		return nil, &RunError{Errors: plan.Errors}
	}

	var drifts []Drift
	for _, f := range plan.Files {
		d, err := diffFile(f)
		if err != nil {
			return nil, err
		}
		if d != nil {
			drifts = append(drifts, *d)
		}
	}
	return drifts, nil
}

func diffFile(f PlannedFile) (*Drift, error) {
	onDisk, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Drift{Path: f.Path, Missing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取文件 %s 失败: %w", f.Path, err)
	}
	if bytes.Equal(onDisk, f.Content) {
		return nil, nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(onDisk)),
		B:        difflib.SplitLines(string(f.Content)),
		FromFile: f.Path + " (磁盘)",
		ToFile:   f.Path + " (生成)",
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("比较文件 %s 失败: %w", f.Path, err)
	}
	return &Drift{Path: f.Path, Diff: diff}, nil
}
