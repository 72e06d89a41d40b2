package cache

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
)

const (
	cacheFilePrefix = "cache-"
	cacheFileExt    = ".json"

	// maxReadableNameBytes 파일명에 포함할 검색어 부분의 최대 바이트 수
	maxReadableNameBytes = 60
)

// unsafeFilenameReplacer 경로 구분자와 Windows 예약 문자를 '-'로 치환한다.
var unsafeFilenameReplacer = strings.NewReplacer(
	"..", "--",
	"/", "-",
	"\\", "-",
	"|", "-",
	"<", "-",
	">", "-",
	":", "-",
	"\"", "-",
	"?", "-",
	"*", "-",
)

// cacheFilename 검색어로부터 캐시 파일명을 만듭니다.
//
// 사람이 알아볼 수 있는 kebab-case 검색어 뒤에 원본 검색어의 64비트 해시를 붙입니다.
// 대소문자만 다르거나 정제 후 같아지는 검색어도 해시로 구분됩니다.
//
//	"Finance App" -> "cache-finance-app-1f0e....json"
func cacheFilename(query string) string {
	readable := truncateByBytes(sanitizeName(query), maxReadableNameBytes)
	readable = strings.Trim(readable, "-")
	if readable == "" {
		readable = "query"
	}

	hasher := fnv.New64a()
	_, _ = fmt.Fprintf(hasher, "%d:%s", len(query), query)

	return fmt.Sprintf("%s%s-%016x%s", cacheFilePrefix, readable, hasher.Sum64(), cacheFileExt)
}

func sanitizeName(s string) string {
	kebab := strcase.ToKebab(s)

	kebab = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return '-'
		}
		return r
	}, kebab)

	return unsafeFilenameReplacer.Replace(kebab)
}

// truncateByBytes 멀티바이트 문자를 자르지 않도록 rune 경계에서 limit 바이트 이하로 자릅니다.
func truncateByBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	n := 0
	for n < len(s) {
		_, size := utf8.DecodeRuneInString(s[n:])
		if n+size > limit {
			break
		}
		n += size
	}

	return s[:n]
}
