/*
 * @module service/evaluator/metrics
 * @description 表格指标计算：行数、列数、逐列空值数、重复行数与列类型推断
 * @architecture 分层架构 - 数据处理层
 * @documentReference dev_docs/requirements.md#12
 * @stateFlow 读取CSV -> 编码识别(UTF-8/GBK) -> 逐行统计 -> 类型推断
 * @rules 缺失单元格与常见空值标记视为空值；重复行按整行比较且空值互相相等
 * @dependencies encoding/csv, golang.org/x/text, github.com/spf13/cast
 * @refs service/evaluator/evaluator.go
 */

package evaluator

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// nullMarkers 与常见数据分析工具一致的空值标记
var nullMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

const nullKeyMarker = "\x00"

// TableMetrics 表格指标
type TableMetrics struct {
	Columns       []string          `json:"columns"`
	Rows          int               `json:"rows"`
	NullCount     int               `json:"null_count"`
	NullCounts    map[string]int    `json:"null_counts"`
	DuplicateRows int               `json:"duplicate_rows"`
	SchemaTypes   map[string]string `json:"schema_types"`
}

// ComputeFile 计算CSV文件的指标
func ComputeFile(path string) (*TableMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ComputeCSV(data)
}

// ComputeCSV 计算CSV内容的指标，非UTF-8内容按GBK解码
func ComputeCSV(data []byte) (*TableMetrics, error) {
	data, err := normalizeEncoding(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &TableMetrics{
			NullCounts:  map[string]int{},
			SchemaTypes: map[string]string{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取CSV表头失败: %w", err)
	}

	header = uniqueColumns(header)
	m := &TableMetrics{
		Columns:     header,
		NullCounts:  make(map[string]int, len(header)),
		SchemaTypes: make(map[string]string, len(header)),
	}
	for _, col := range header {
		m.NullCounts[col] = 0
	}

	inferers := make([]*typeInferer, len(header))
	for i := range inferers {
		inferers[i] = &typeInferer{}
	}

	seen := make(map[string]struct{})
	key := make([]string, len(header))

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取CSV第%d行失败: %w", m.Rows+2, err)
		}
		m.Rows++

		for i, col := range header {
			cell := ""
			present := i < len(record)
			if present {
				cell = record[i]
			}
			if !present || isNullCell(cell) {
				m.NullCounts[col]++
				m.NullCount++
				key[i] = nullKeyMarker
				inferers[i].observeNull()
				continue
			}
			key[i] = cell
			inferers[i].observe(cell)
		}

		rowKey := strings.Join(key, "\x1f")
		if _, dup := seen[rowKey]; dup {
			m.DuplicateRows++
		} else {
			seen[rowKey] = struct{}{}
		}
	}

	for i, col := range header {
		m.SchemaTypes[col] = inferers[i].dtype()
	}
	return m, nil
}

// uniqueColumns 重复列名依次追加 .1、.2 后缀，与 pandas 读取CSV的命名一致
func uniqueColumns(header []string) []string {
	used := make(map[string]struct{}, len(header))
	for _, col := range header {
		used[col] = struct{}{}
	}

	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, col := range header {
		n := counts[col]
		counts[col] = n + 1
		if n == 0 {
			out[i] = col
			continue
		}
		name := fmt.Sprintf("%s.%d", col, n)
		for {
			if _, taken := used[name]; !taken {
				break
			}
			n++
			name = fmt.Sprintf("%s.%d", col, n)
		}
		counts[col] = n + 1
		used[name] = struct{}{}
		out[i] = name
	}
	return out
}

func normalizeEncoding(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("GBK解码失败: %w", err)
	}
	return decoded, nil
}

func isNullCell(cell string) bool {
	_, ok := nullMarkers[cell]
	return ok
}

// typeInferer 逐列推断类型
type typeInferer struct {
	nonNull  int
	nulls    int
	notInt   bool
	notFloat bool
	notBool  bool
}

func (t *typeInferer) observeNull() { t.nulls++ }

func (t *typeInferer) observe(cell string) {
	t.nonNull++
	v := strings.TrimSpace(cell)
	if !t.notInt {
		if _, err := cast.ToInt64E(v); err != nil {
			t.notInt = true
		}
	}
	if !t.notFloat {
		if _, err := cast.ToFloat64E(v); err != nil {
			t.notFloat = true
		}
	}
	if !t.notBool {
		if _, err := cast.ToBoolE(v); err != nil || !isBoolLiteral(v) {
			t.notBool = true
		}
	}
}

// dtype 含空值的整数/布尔列退化为 float64/object
func (t *typeInferer) dtype() string {
	switch {
	case t.nonNull == 0:
		return "float64"
	case !t.notInt:
		if t.nulls > 0 {
			return "float64"
		}
		return "int64"
	case !t.notFloat:
		return "float64"
	case !t.notBool:
		if t.nulls > 0 {
			return "object"
		}
		return "bool"
	default:
		return "object"
	}
}

func isBoolLiteral(v string) bool {
	switch v {
	case "True", "False", "true", "false", "TRUE", "FALSE":
		return true
	}
	return false
}
