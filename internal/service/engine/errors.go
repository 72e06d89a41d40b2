package engine

import (
	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
)

var (
	// ErrEmptyQuery 검색어가 비어 있을 때 반환됩니다.
	ErrEmptyQuery = apperrors.New(apperrors.InvalidInput, "검색어가 비어 있습니다")

	// ErrNoItems 생성된 항목이 하나도 없을 때 반환됩니다.
	ErrNoItems = apperrors.New(apperrors.InvalidInput, "항목 목록이 비어 있습니다")

	// ErrItemNotFound 현재 작업에 없는 항목을 요청했을 때 반환됩니다.
	ErrItemNotFound = apperrors.New(apperrors.NotFound, "현재 작업에 해당 항목이 없습니다")

	// ErrRetryNotApplicable 실패 상태가 아닌 항목을 재시도하려 할 때 반환됩니다.
	ErrRetryNotApplicable = apperrors.New(apperrors.Conflict, "실패 상태인 항목만 재시도할 수 있습니다")

	// ErrTaskSuperseded 요청을 처리하는 동안 새로운 작업이 시작되어 결과를 버렸을 때 반환됩니다.
	ErrTaskSuperseded = apperrors.New(apperrors.Conflict, "요청을 처리하는 동안 새로운 작업이 시작되었습니다")

	// ErrDetailsUnavailable 백엔드가 항목의 상세 정보를 만들지 못했을 때 반환됩니다.
	ErrDetailsUnavailable = apperrors.New(apperrors.ExecutionFailed, "항목의 상세 정보를 생성하지 못했습니다")

	// ErrEngineNotRunning 시작되지 않았거나 이미 종료된 엔진을 호출했을 때 반환됩니다.
	ErrEngineNotRunning = apperrors.New(apperrors.Unavailable, "동기화 엔진이 실행 중이 아닙니다")
)

func newErrGenerateFailed(err error, query string) error {
	return apperrors.Wrapf(err, apperrors.UnderlyingType(err), "도메인 목록 생성 실패 (검색어: %q)", query)
}

func newErrDetailsUnavailable(key contract.ItemKey, reason string) error {
	return apperrors.Wrapf(ErrDetailsUnavailable, apperrors.ExecutionFailed, "'%s': %s", key, reason)
}
