/*
 * @module service/executor/fetcher
 * @description 数据集下载器，按URL拉取用户上传的数据文件到运行目录
 * @architecture 适配器模式 - HTTP文件获取
 * @documentReference dev_docs/requirements.md#12
 * @stateFlow 校验扩展名 -> GET请求 -> 流式写入临时文件 -> 原子替换
 * @rules 仅支持 csv/json/xlsx；非2xx响应视为失败
 * @dependencies net/http
 * @refs service/executor/executor.go
 */

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedFileType 不支持的数据文件类型
var ErrUnsupportedFileType = errors.New("不支持的文件类型")

var supportedExtensions = map[string]struct{}{
	"csv":  {},
	"json": {},
	"xlsx": {},
}

// FileExtension 从URL中提取文件扩展名并校验
func FileExtension(rawURL string) (string, error) {
	p := strings.SplitN(rawURL, "?", 2)[0]
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, rawURL)
	}
	if _, ok := supportedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
	return ext, nil
}

// Fetcher 数据集下载器
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher 创建下载器
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{client: &http.Client{}, timeout: timeout}
}

// Fetch 下载文件到 dest，返回写入字节数
func (f *Fetcher) Fetch(ctx context.Context, fileURL, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("创建下载请求失败: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("下载文件失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("下载文件失败: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".download-*")
	if err != nil {
		return 0, fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("写入下载内容失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("保存下载文件失败: %w", err)
	}
	return n, nil
}
