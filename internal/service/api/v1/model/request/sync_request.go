package request

// SearchRequest 검색어로 새 작업을 시작하는 요청
type SearchRequest struct {
	Query string `json:"query" validate:"required,max=200" korean:"검색어"`
}

// MoreRequest 노출 항목 수를 늘리는 요청. Count가 0이면 기본 페이지 크기만큼 늘립니다.
type MoreRequest struct {
	Count int `json:"count" validate:"min=0,max=50" korean:"항목 수"`
}
