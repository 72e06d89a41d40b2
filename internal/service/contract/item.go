package contract

import (
	"strings"

	apperrors "github.com/darkkaiser/domain-sync/internal/pkg/errors"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

// FailedDescriptionPrefix 백엔드가 상세 설명 생성에 실패했을 때 설명 필드에 채워 보내는 문구의 접두사
const FailedDescriptionPrefix = "Failed to generate description"

// ItemKey 생성된 도메인 후보 하나를 식별하는 정규화된 키입니다.
type ItemKey string

func (k ItemKey) String() string {
	return string(k)
}

// NormalizeItemKey 원시 도메인 이름을 ItemKey로 정규화합니다.
//
// 앞뒤 공백 제거, 유니코드 NFC 정규화, 끝의 '.' 제거 후 공개 접미사(TLD 등)를 떼어냅니다.
// 대소문자는 보존합니다.
//
//	"Alpha.lk"    -> "Alpha"
//	"Alpha.co.uk" -> "Alpha"
//	"Alpha"       -> "Alpha"
func NormalizeItemKey(raw string) ItemKey {
	s := norm.NFC.String(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".")

	if !strings.Contains(s, ".") {
		return ItemKey(s)
	}

	suffix, _ := publicsuffix.PublicSuffix(strings.ToLower(s))
	if suffix == "" || len(suffix)+1 >= len(s) {
		return ItemKey(s)
	}

	cut := len(s) - len(suffix)
	if s[cut-1] != '.' || !strings.EqualFold(s[cut:], suffix) {
		return ItemKey(s)
	}

	return ItemKey(s[:cut-1])
}

// NormalizeItemKeys 원시 이름 목록을 정규화합니다.
// 빈 키는 버리고, 중복은 처음 등장한 순서를 유지한 채 제거합니다.
func NormalizeItemKeys(raws []string) []ItemKey {
	keys := make([]ItemKey, 0, len(raws))
	seen := make(map[ItemKey]struct{}, len(raws))

	for _, raw := range raws {
		key := NormalizeItemKey(raw)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys
}

// ResultRecord 항목 하나에 대해 생성된 상세 정보입니다.
type ResultRecord struct {
	DomainName    string   `json:"domainName"`
	Description   string   `json:"domainDescription"`
	RelatedFields []string `json:"relatedFields"`
}

// Key 레코드의 도메인 이름으로부터 ItemKey를 계산합니다.
func (r ResultRecord) Key() ItemKey {
	return NormalizeItemKey(r.DomainName)
}

// Validate 화면에 그대로 표시할 수 있는 완전한 레코드인지 검사합니다.
func (r ResultRecord) Validate() error {
	if strings.TrimSpace(r.DomainName) == "" {
		return apperrors.New(apperrors.InvalidInput, "도메인 이름(domainName)이 비어 있습니다")
	}
	if strings.TrimSpace(r.Description) == "" {
		return apperrors.Newf(apperrors.InvalidInput, "'%s'의 설명(domainDescription)이 비어 있습니다", r.DomainName)
	}
	return nil
}

// IsFailurePlaceholder 백엔드가 생성 실패를 설명 문구로 대신 전달한 레코드인지 확인합니다.
func (r ResultRecord) IsFailurePlaceholder() bool {
	return strings.HasPrefix(strings.TrimSpace(r.Description), FailedDescriptionPrefix)
}

// Clone RelatedFields 슬라이스까지 복사한 사본을 반환합니다.
func (r ResultRecord) Clone() ResultRecord {
	if r.RelatedFields != nil {
		r.RelatedFields = append([]string(nil), r.RelatedFields...)
	}
	return r
}

// ResultMapping ItemKey별 최신 ResultRecord입니다. 같은 키는 나중에 들어온 레코드로 덮어씁니다.
type ResultMapping map[ItemKey]ResultRecord

// Clone 얕은 복사본을 반환합니다. ResultRecord는 저장 후 변경되지 않으므로 레코드 자체는 공유합니다.
func (m ResultMapping) Clone() ResultMapping {
	c := make(ResultMapping, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
