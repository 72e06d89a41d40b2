package cache

import (
	"fmt"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
)

var (
	// ErrPathTraversalDetected 계산된 캐시 파일 경로가 저장소 디렉토리를 벗어날 때 반환됩니다.
	ErrPathTraversalDetected = apperrors.New(apperrors.Internal, "보안 정책 위반: 캐시 디렉토리 밖의 경로 접근이 차단되었습니다")

	// ErrEmptyQuery 검색어 없이 캐시를 저장하려 할 때 반환됩니다.
	ErrEmptyQuery = apperrors.New(apperrors.InvalidInput, "캐시 항목의 검색어(query)가 비어 있습니다")
)

// newErrMiss 원인을 설명하는 ErrCacheMiss를 생성합니다. errors.Is(err, contract.ErrCacheMiss)가 성립합니다.
func newErrMiss(reason string) error {
	return apperrors.Wrap(contract.ErrCacheMiss, apperrors.NotFound, reason)
}

func newErrDirectoryAccessFailed(err error, dir string) error {
	return apperrors.Wrap(err, apperrors.System, fmt.Sprintf("캐시 저장소 초기화 실패: 디렉토리 접근 불가 (%s)", dir))
}

func newErrEncodeFailed(err error) error {
	return apperrors.Wrap(err, apperrors.Internal, "캐시 항목 직렬화 중 오류가 발생했습니다")
}

func newErrReadFailed(err error) error {
	return apperrors.Wrap(err, apperrors.System, "캐시 파일 읽기 중 오류가 발생했습니다")
}

func newErrWriteFailed(err error, step string) error {
	return apperrors.Wrapf(err, apperrors.System, "캐시 파일 저장 실패: %s 단계에서 오류가 발생했습니다", step)
}

func newErrRemoveFailed(err error) error {
	return apperrors.Wrap(err, apperrors.System, "캐시 파일 삭제 중 오류가 발생했습니다")
}
