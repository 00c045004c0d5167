package policy_store

import (
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/utils"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FileBackend 以 policies/<key>.json 文件保存策略数据
type FileBackend struct {
	dir    string
	rename func(oldpath, newpath string) error
}

// NewFileBackend 创建文件后端，目录不存在时自动创建
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &models.StoreUnavailableError{Op: "创建策略目录", Err: err}
	}
	return &FileBackend{dir: dir, rename: os.Rename}, nil
}

func (b *FileBackend) Name() string { return "file" }

// Dir 策略目录
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(key Key) string {
	return filepath.Join(b.dir, string(key)+".json")
}

func (b *FileBackend) Read(ctx context.Context, key Key) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &models.CorruptStateError{Key: string(key), Err: err}
	}
	return data, nil
}

func (b *FileBackend) Write(ctx context.Context, key Key, value []byte) error {
	if err := utils.WriteFileAtomic(b.path(key), value, 0o644); err != nil {
		return &models.StoreUnavailableError{Op: "写入 " + string(key), Err: err}
	}
	return nil
}

// WriteBatch 先把全部键写成已落盘的临时文件，再依次 rename；
// 任一 rename 失败时把已替换的键恢复为批量写入前的内容
func (b *FileBackend) WriteBatch(ctx context.Context, values map[Key][]byte) error {
	keys := make([]Key, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	staged := make(map[Key]string, len(keys))
	discard := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}

	// 旧内容快照，nil 表示写入前不存在
	previous := make(map[Key][]byte, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			discard()
			return &models.StoreUnavailableError{Op: "批量写入", Err: err}
		}
		old, err := os.ReadFile(b.path(key))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			discard()
			return &models.StoreUnavailableError{Op: "读取 " + string(key), Err: err}
		}
		previous[key] = old

		tmp, err := utils.StageFile(b.dir, string(key)+".json", values[key], 0o644)
		if err != nil {
			discard()
			return &models.StoreUnavailableError{Op: "暂存 " + string(key), Err: err}
		}
		staged[key] = tmp
	}

	for i, key := range keys {
		if err := b.rename(staged[key], b.path(key)); err != nil {
			slog.Error("策略文件替换中断，回滚已替换的键",
				"key", key,
				"committed", keys[:i],
				"error", err)
			discard()
			b.rollback(keys[:i], previous)
			return &models.StoreUnavailableError{Op: fmt.Sprintf("替换 %s", key), Err: err}
		}
		delete(staged, key)
	}

	return utils.SyncDir(b.dir)
}

func (b *FileBackend) rollback(keys []Key, previous map[Key][]byte) {
	for _, key := range keys {
		var err error
		if old := previous[key]; old != nil {
			err = utils.WriteFileAtomic(b.path(key), old, 0o644)
		} else {
			err = os.Remove(b.path(key))
		}
		if err != nil {
			slog.Error("策略文件回滚失败", "key", key, "error", err)
		}
	}
}
