// 包 ndjson：逐行 JSON 的历史日志读取与快照写出，作为文件型来源与落点
package ndjson

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"osmesa/internal/logger"
	"osmesa/internal/osm"
)

// maxLine：单行上限；长路径（数千个点引用）与大关系的成员列表需要较大的缓冲
const maxLine = 16 * 1024 * 1024

// LineError：第 Line 行解析失败
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("ndjson: line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// 文档注释：按行解码
// 背景：历史导出为每行一个版本；空行与 # 开头的注释行跳过。
// 约束：任一行解码失败立即返回 *LineError，不做纠错以确保数据质量。
func Read[T any](r io.Reader) ([]T, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	var out []T
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		s := strings.TrimSpace(string(b))
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		out = append(out, v)
		if len(out)%100000 == 0 {
			logger.L().Debug("ndjson_progress", "rows", len(out))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &LineError{Line: line + 1, Err: err}
	}
	return out, nil
}

// ReadFile：打开文件并按行解码；.gz 后缀按 gzip 解压
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("ndjson: %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	out, err := Read[T](r)
	if err != nil {
		return nil, fmt.Errorf("ndjson: %s: %w", path, err)
	}
	logger.L().Info("ndjson_loaded", "path", path, "rows", len(out))
	return out, nil
}

func ReadNodes(path string) ([]osm.Node, error) { return ReadFile[osm.Node](path) }

func ReadWays(path string) ([]osm.Way, error) { return ReadFile[osm.Way](path) }

// ReadRelations：路径为空时返回空集合（关系历史可选）
func ReadRelations(path string) ([]osm.Relation, error) {
	if path == "" {
		return nil, nil
	}
	return ReadFile[osm.Relation](path)
}
