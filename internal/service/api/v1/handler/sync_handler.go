package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/darkkaiser/domain-sync/internal/service/api/httputil"
	"github.com/darkkaiser/domain-sync/internal/service/api/v1/model/request"
	"github.com/darkkaiser/domain-sync/internal/service/api/v1/model/response"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/darkkaiser/domain-sync/internal/service/engine"
	applog "github.com/darkkaiser/domain-sync/pkg/log"
	"github.com/labstack/echo/v4"
)

// SearchHandler 검색어로 새 작업을 시작하고, 시작 직후의 상태를 반환합니다.
//
//	POST /api/v1/search
//	{"query": "finance"}
func (h *Handler) SearchHandler(c echo.Context) error {
	req := new(request.SearchRequest)
	if err := c.Bind(req); err != nil {
		return NewErrInvalidBody()
	}
	if err := validateRequest(req); err != nil {
		return NewErrValidationFailed(formatValidationError(err))
	}

	snap, err := h.syncEngine.Search(c.Request().Context(), req.Query)
	if err != nil {
		h.log(c).WithFields(applog.Fields{
			"query": req.Query,
			"error": err,
		}).Warn("검색 요청 처리 실패")

		return httputil.FromError(err)
	}

	h.log(c).WithFields(applog.Fields{
		"query":      req.Query,
		"generation": snap.Generation,
		"items":      len(snap.Items),
	}).Info("검색 작업 시작")

	return c.JSON(http.StatusOK, response.NewStateResponse(snap, false))
}

// MoreHandler 노출 항목 수를 늘립니다. 본문이 없으면 기본 페이지 크기만큼 늘립니다.
//
//	POST /api/v1/more
//	{"count": 6}
func (h *Handler) MoreHandler(c echo.Context) error {
	req := new(request.MoreRequest)
	if err := c.Bind(req); err != nil {
		return NewErrInvalidBody()
	}
	if err := validateRequest(req); err != nil {
		return NewErrValidationFailed(formatValidationError(err))
	}

	snap, err := h.syncEngine.RequestMore(c.Request().Context(), req.Count)
	if err != nil {
		return httputil.FromError(err)
	}

	return c.JSON(http.StatusOK, response.NewStateResponse(snap, false))
}

// StateHandler 현재 상태를 반환합니다. all=true이면 노출되지 않은 항목까지 포함합니다.
//
//	GET /api/v1/state?all=true
func (h *Handler) StateHandler(c echo.Context) error {
	all := false
	if raw := c.QueryParam("all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return NewErrValidationFailed("all은 true 또는 false여야 합니다")
		}
		all = v
	}

	return c.JSON(http.StatusOK, response.NewStateResponse(h.syncEngine.Snapshot(), all))
}

// ItemHandler 항목 하나의 표시 상태와 결과를 반환합니다.
//
//	GET /api/v1/items/:key
func (h *Handler) ItemHandler(c echo.Context) error {
	key, err := itemKeyParam(c)
	if err != nil {
		return err
	}

	snap := h.syncEngine.Snapshot()
	if !snap.Has(key) {
		return httputil.FromError(engine.ErrItemNotFound)
	}

	return c.JSON(http.StatusOK, response.NewItemResponse(snap, key))
}

// DetailsHandler 항목의 상세 정보를 반환합니다. 아직 결과가 없으면 백엔드에 생성을 요청합니다.
//
//	POST /api/v1/items/:key/details
func (h *Handler) DetailsHandler(c echo.Context) error {
	key, err := itemKeyParam(c)
	if err != nil {
		return err
	}

	if _, err := h.syncEngine.RequestDetails(c.Request().Context(), key); err != nil {
		h.log(c).WithFields(applog.Fields{
			"key":   key,
			"error": err,
		}).Warn("상세 정보 요청 실패")

		return httputil.FromError(err)
	}

	return c.JSON(http.StatusOK, response.NewItemResponse(h.syncEngine.Snapshot(), key))
}

// RetryHandler 실패 상태인 항목의 상세 정보를 다시 요청합니다.
//
//	POST /api/v1/items/:key/retry
func (h *Handler) RetryHandler(c echo.Context) error {
	key, err := itemKeyParam(c)
	if err != nil {
		return err
	}

	if _, err := h.syncEngine.Retry(c.Request().Context(), key); err != nil {
		h.log(c).WithFields(applog.Fields{
			"key":   key,
			"error": err,
		}).Warn("항목 재시도 실패")

		return httputil.FromError(err)
	}

	h.log(c).WithField("key", key).Info("항목 재시도 성공")

	return c.JSON(http.StatusOK, response.NewItemResponse(h.syncEngine.Snapshot(), key))
}

// ClearCacheHandler 저장된 검색 결과 캐시를 모두 삭제합니다.
//
//	DELETE /api/v1/cache
func (h *Handler) ClearCacheHandler(c echo.Context) error {
	if err := h.syncEngine.ClearCache(c.Request().Context()); err != nil {
		return httputil.FromError(err)
	}

	return httputil.Success(c)
}

// itemKeyParam 경로의 :key를 ItemKey로 정규화합니다. "Alpha.lk"와 "Alpha"는 같은 항목입니다.
func itemKeyParam(c echo.Context) (contract.ItemKey, error) {
	raw, err := url.PathUnescape(c.Param("key"))
	if err != nil {
		return "", NewErrInvalidItemKey()
	}

	key := contract.NormalizeItemKey(raw)
	if key == "" {
		return "", NewErrInvalidItemKey()
	}

	return key, nil
}
