package utils

import (
	"fmt"
	"os"

	"golang.org/x/tools/imports"
)

// Format 格式化 Go 源码并整理 imports
func Format(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("格式化 %s: %w", filename, err)
	}
	return out, nil
}

// WriteFormat 格式化后写入文件
func WriteFormat(filename string, src []byte) error {
	out, err := Format(filename, src)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, out, 0644)
}
