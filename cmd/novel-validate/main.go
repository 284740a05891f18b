// Package main 小说内容校验 CLI。
// 对单个 JSON 文件或目录下的全部 *.json 执行校验并打印分组报告，
// 存在任一错误时以非零码退出。
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sherry-reader/internal/application/validator"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "用法: novel-validate <文件或目录>")
		os.Exit(2)
	}

	target := os.Args[1]
	info, err := os.Stat(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法访问 %s: %v\n", target, err)
		os.Exit(2)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "无法读取目录 %s: %v\n", target, err)
			os.Exit(2)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				files = append(files, filepath.Join(target, e.Name()))
			}
		}
		if len(files) == 0 {
			fmt.Fprintf(os.Stderr, "目录 %s 下没有 JSON 文件\n", target)
			os.Exit(2)
		}
	} else {
		files = []string{target}
	}

	totalErrors := 0
	for _, f := range files {
		totalErrors += validateFile(f)
	}

	if totalErrors > 0 {
		os.Exit(1)
	}
}

func validateFile(path string) int {
	fmt.Printf("\n🔍 正在校验文件: %s\n", filepath.Base(path))

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("❌ 发现 1 个严重错误:\n")
		fmt.Printf("   - [文件读取失败] %v\n", err)
		return 1
	}

	result := validator.Validate(raw)
	report(result)
	return len(result.Errors)
}

func report(r *validator.Result) {
	if len(r.Errors) == 0 {
		fmt.Println("✅ 校验通过！格式完全符合协议。")
	} else {
		fmt.Printf("❌ 发现 %d 个严重错误:\n", len(r.Errors))
		for _, issue := range r.Errors {
			fmt.Printf("   - [%s] %s\n", issue.Category, issue.Message)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Printf("⚠️ 发现 %d 个建议项:\n", len(r.Warnings))
		for _, issue := range r.Warnings {
			fmt.Printf("   - [%s] %s\n", issue.Category, issue.Message)
		}
	}
}
