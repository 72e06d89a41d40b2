package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/darkkaiser/domain-sync/pkg/concurrency"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
)

const (
	tempFilePattern = "cache-*.tmp"

	// staleTempFileAge 이보다 오래된 임시 파일은 비정상 종료로 남은 것으로 보고 삭제한다.
	staleTempFileAge = time.Hour
)

// FileStore 디렉토리에 검색어별 JSON 파일로 항목을 보관하는 저장소입니다.
//
// 쓰기는 임시 파일 작성 후 rename하는 방식으로 원자적으로 수행되며,
// 같은 파일에 대한 동시 접근은 파일 단위 잠금으로 직렬화됩니다.
type FileStore struct {
	baseDir string

	locks *concurrency.KeyedMutex[string]
}

var (
	_ contract.CacheStore  = (*FileStore)(nil)
	_ contract.CachePurger = (*FileStore)(nil)
)

// NewFileStore dir을 저장 위치로 하는 FileStore를 생성합니다. 디렉토리가 없으면 만듭니다.
func NewFileStore(dir string) (*FileStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, newErrDirectoryAccessFailed(err, dir)
	}

	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, newErrDirectoryAccessFailed(err, absDir)
	}

	return &FileStore{
		baseDir: absDir,
		locks:   concurrency.NewKeyedMutex[string](),
	}, nil
}

// Dir 저장소 디렉토리의 절대 경로를 반환합니다.
func (s *FileStore) Dir() string {
	return s.baseDir
}

func (s *FileStore) Load(ctx context.Context, query string) (*contract.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolveSafePath(query)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.locks.WithLock(path, func() error {
		var readErr error
		data, readErr = os.ReadFile(path)
		return readErr
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, contract.ErrCacheMiss
		}
		return nil, newErrReadFailed(err)
	}

	entry, err := decode(data, query)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"query": query,
			"file":  filepath.Base(path),
			"error": err,
		}).Warn("캐시 파일을 사용할 수 없어 캐시 미스로 처리합니다")

		return nil, err
	}

	return entry, nil
}

func (s *FileStore) Save(ctx context.Context, entry *contract.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Query == "" {
		return ErrEmptyQuery
	}

	path, err := s.resolveSafePath(entry.Query)
	if err != nil {
		return err
	}

	data, err := encode(entry)
	if err != nil {
		return err
	}

	return s.locks.WithLock(path, func() error {
		return s.writeAtomic(path, data)
	})
}

func (s *FileStore) Clear(ctx context.Context) error {
	_, err := s.removeMatching(ctx, func(string, []byte) bool { return true })
	return err
}

// Purge SavedAt이 olderThan 이전인 항목과 해석할 수 없는 항목을 삭제합니다.
// 비정상 종료로 남은 오래된 임시 파일도 함께 정리합니다.
func (s *FileStore) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	s.cleanupStaleTempFiles(time.Now().Add(-staleTempFileAge))

	return s.removeMatching(ctx, func(_ string, data []byte) bool {
		entry, err := decodeAny(data)
		if err != nil {
			return true
		}
		return isExpired(entry, olderThan)
	})
}

// removeMatching 캐시 파일을 순회하며 shouldRemove가 true인 파일을 삭제합니다.
func (s *FileStore) removeMatching(ctx context.Context, shouldRemove func(path string, data []byte) bool) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, newErrReadFailed(err)
	}

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, cacheFilePrefix) || !strings.HasSuffix(name, cacheFileExt) {
			continue
		}

		path := filepath.Join(s.baseDir, name)
		err := s.locks.WithLock(path, func() error {
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				if errors.Is(readErr, fs.ErrNotExist) {
					return nil
				}
				return newErrReadFailed(readErr)
			}

			if !shouldRemove(path, data) {
				return nil
			}

			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				return newErrRemoveFailed(rmErr)
			}
			removed++

			return nil
		})
		if err != nil {
			return removed, err
		}
	}

	return removed, nil
}

// cleanupStaleTempFiles threshold 이전에 수정된 임시 파일을 삭제합니다.
func (s *FileStore) cleanupStaleTempFiles(threshold time.Time) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"dir":   s.baseDir,
			"error": err,
		}).Warn("임시 파일 정리 중단: 디렉토리 조회 실패")

		return
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matched, _ := filepath.Match(tempFilePattern, e.Name()); !matched {
			continue
		}

		info, err := e.Info()
		if err != nil || info.ModTime().After(threshold) {
			continue
		}

		path := filepath.Join(s.baseDir, e.Name())
		if err := os.Remove(path); err != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"file":  path,
				"error": err,
			}).Warn("임시 파일 삭제 실패")
			continue
		}

		applog.WithComponentAndFields(component, applog.Fields{
			"file": path,
		}).Info("이전 실행에서 남은 임시 파일을 삭제했습니다")
	}
}

// resolveSafePath 검색어에 해당하는 파일 경로를 계산하고, 저장소 디렉토리 안에 있는지 확인합니다.
func (s *FileStore) resolveSafePath(query string) (string, error) {
	path := filepath.Clean(filepath.Join(s.baseDir, cacheFilename(query)))

	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		applog.WithComponentAndFields(component, applog.Fields{
			"query":    query,
			"base_dir": s.baseDir,
			"path":     path,
		}).Error("캐시 파일 경로 생성 차단: 경로 이탈 시도 감지")

		return "", ErrPathTraversalDetected
	}

	return path, nil
}

// writeAtomic 임시 파일에 기록하고 fsync한 뒤 rename으로 교체합니다.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return newErrWriteFailed(err, "임시 파일 생성")
	}
	tmpPath := tmpFile.Name()

	// rename에 성공하면 tmpPath가 더 이상 존재하지 않으므로 Remove는 무시된다.
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return newErrWriteFailed(err, "쓰기")
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return newErrWriteFailed(err, "디스크 동기화")
	}
	if err := tmpFile.Close(); err != nil {
		return newErrWriteFailed(err, "닫기")
	}

	if err := renameWithRetry(tmpPath, path); err != nil {
		return newErrWriteFailed(err, "이름 변경")
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}

// renameWithRetry 다른 프로세스(백신, 인덱서 등)가 파일을 잠시 점유한 경우를 위해 짧게 재시도합니다.
func renameWithRetry(oldPath, newPath string) error {
	const (
		maxAttempts = 5
		retryDelay  = 10 * time.Millisecond
	)

	var lastErr error
	for range maxAttempts {
		if lastErr = os.Rename(oldPath, newPath); lastErr == nil {
			return nil
		}
		time.Sleep(retryDelay)
	}

	return lastErr
}
