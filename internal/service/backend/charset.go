package backend

import (
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// utf8Reader Content-Type에 UTF-8이 아닌 charset(예: EUC-KR)이 명시된 경우 본문을 UTF-8로 변환하는 Reader를 반환합니다.
// charset이 없으면 JSON 기본값인 UTF-8로 보고 그대로 반환합니다.
func utf8Reader(body io.Reader, contentType string) (io.Reader, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}

	name := strings.TrimSpace(params["charset"])
	if name == "" {
		return body, nil
	}

	enc, canonical := charset.Lookup(name)
	if enc == nil {
		return nil, newErrUnsupportedCharset(name)
	}
	if canonical == "utf-8" {
		return body, nil
	}

	return transform.NewReader(body, enc.NewDecoder()), nil
}
