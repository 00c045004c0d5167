/*
 * @module service/utils/file_utils
 * @description 文件工具，提供原子替换写入与分阶段写入
 * @architecture 工具层
 * @documentReference dev_docs/requirements.md#5
 * @stateFlow 写临时文件 -> fsync -> rename 覆盖 -> fsync 目录
 * @rules 读者只会看到旧内容或完整的新内容，不会看到半写入文件
 * @dependencies os, path/filepath
 * @refs service/policy_store, service/artifact
 */

package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic 原子替换写入文件
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := StageFile(dir, filepath.Base(path), data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("替换文件 %s 失败: %w", path, err)
	}
	return SyncDir(dir)
}

// StageFile 在目标目录写入已落盘的临时文件，返回临时文件路径
func StageFile(dir, name string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmp := f.Name()

	cleanup := func(cause error) (string, error) {
		f.Close()
		os.Remove(tmp)
		return "", cause
	}

	if _, err := f.Write(data); err != nil {
		return cleanup(fmt.Errorf("写入临时文件失败: %w", err))
	}
	if err := f.Chmod(perm); err != nil {
		return cleanup(fmt.Errorf("设置文件权限失败: %w", err))
	}
	if err := f.Sync(); err != nil {
		return cleanup(fmt.Errorf("同步临时文件失败: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("关闭临时文件失败: %w", err)
	}
	return tmp, nil
}

// SyncDir 同步目录项，确保 rename 持久化
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("打开目录失败: %w", err)
	}
	defer d.Close()

	// 部分文件系统不支持目录 fsync，忽略该错误
	_ = d.Sync()
	return nil
}
