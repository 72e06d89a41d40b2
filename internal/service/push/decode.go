package push

import (
	"encoding/json"
	"fmt"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/tidwall/gjson"
)

type domainUpdateFrame struct {
	DomainName string                 `json:"domain_name"`
	Data       *contract.ResultRecord `json:"data"`
}

// DecodeEvent 푸시 채널의 JSON 텍스트 프레임 하나를 해석합니다.
//
//	{"type":"domain_update","task_id":"t1","domain_name":"Alpha.com","data":{"domainName":"Alpha.com",...}}
//	{"type":"progress_update","task_id":"t1","processed":3,"total":10}
//	{"type":"completed","task_id":"t1"}
//	{"type":"error","task_id":"t1","message":"..."}
//
// 형식이 잘못되었거나 알 수 없는 type이면 contract.ErrMalformedEvent로 감싼 에러를 반환합니다.
// 레코드 내용의 완전성(설명 누락 등)은 여기서 검사하지 않습니다.
func DecodeEvent(data []byte) (contract.PushEvent, error) {
	if !gjson.ValidBytes(data) {
		return contract.PushEvent{}, contract.NewErrMalformedEvent("JSON 형식이 아닙니다")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return contract.PushEvent{}, contract.NewErrMalformedEvent("메시지가 JSON 객체가 아닙니다")
	}

	typ := root.Get("type")
	if typ.Type != gjson.String {
		return contract.PushEvent{}, contract.NewErrMalformedEvent("type 필드가 없거나 문자열이 아닙니다")
	}

	event := contract.PushEvent{
		Type:   contract.PushEventType(typ.String()),
		TaskID: contract.TaskID(root.Get("task_id").String()),
	}

	switch event.Type {
	case contract.PushDomainUpdate:
		var frame domainUpdateFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return contract.PushEvent{}, contract.NewErrMalformedEvent(fmt.Sprintf("domain_update 해석 실패: %v", err))
		}
		if frame.Data == nil {
			return contract.PushEvent{}, contract.NewErrMalformedEvent("domain_update에 data가 없습니다")
		}

		event.DomainName = frame.DomainName
		if event.DomainName == "" {
			event.DomainName = frame.Data.DomainName
		}
		if event.DomainName == "" {
			return contract.PushEvent{}, contract.NewErrMalformedEvent("domain_update에 도메인 이름이 없습니다")
		}
		event.Record = frame.Data

	case contract.PushProgressUpdate:
		processed, err := intField(root, "processed")
		if err != nil {
			return contract.PushEvent{}, err
		}
		total, err := intField(root, "total")
		if err != nil {
			return contract.PushEvent{}, err
		}
		event.Processed, event.Total = processed, total

	case contract.PushCompleted:

	case contract.PushError:
		event.Message = root.Get("message").String()

	default:
		return contract.PushEvent{}, contract.NewErrMalformedEvent(fmt.Sprintf("알 수 없는 이벤트 종류입니다: '%s'", event.Type))
	}

	return event, nil
}

// intField 정수 필드를 읽습니다. 없거나 숫자가 아니거나 소수이면 에러입니다.
func intField(root gjson.Result, name string) (int, error) {
	v := root.Get(name)
	if v.Type != gjson.Number {
		return 0, contract.NewErrMalformedEvent(fmt.Sprintf("%s 필드가 없거나 숫자가 아닙니다", name))
	}
	if v.Num != float64(v.Int()) {
		return 0, contract.NewErrMalformedEvent(fmt.Sprintf("%s 필드가 정수가 아닙니다: %s", name, v.Raw))
	}
	return int(v.Int()), nil
}
