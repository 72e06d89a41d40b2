package push

import (
	"testing"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		frame     string
		want      contract.PushEvent
		malformed bool
	}{
		{
			name:  "domain_update",
			frame: `{"type":"domain_update","task_id":"t1","domain_name":"Alpha.com","data":{"domainName":"Alpha.com","domainDescription":"desc","relatedFields":["a"]}}`,
			want: contract.PushEvent{
				Type:       contract.PushDomainUpdate,
				TaskID:     "t1",
				DomainName: "Alpha.com",
				Record:     &contract.ResultRecord{DomainName: "Alpha.com", Description: "desc", RelatedFields: []string{"a"}},
			},
		},
		{
			name:  "domain_name이 없으면 레코드의 이름을 사용",
			frame: `{"type":"domain_update","data":{"domainName":"Beta.io","domainDescription":"d"}}`,
			want: contract.PushEvent{
				Type:       contract.PushDomainUpdate,
				DomainName: "Beta.io",
				Record:     &contract.ResultRecord{DomainName: "Beta.io", Description: "d"},
			},
		},
		{
			name:  "progress_update",
			frame: `{"type":"progress_update","task_id":"t1","processed":1,"total":2}`,
			want:  contract.PushEvent{Type: contract.PushProgressUpdate, TaskID: "t1", Processed: 1, Total: 2},
		},
		{
			name:  "completed",
			frame: `{"type":"completed","task_id":"t1"}`,
			want:  contract.PushEvent{Type: contract.PushCompleted, TaskID: "t1"},
		},
		{
			name:  "error",
			frame: `{"type":"error","message":"worker crashed"}`,
			want:  contract.PushEvent{Type: contract.PushError, Message: "worker crashed"},
		},
		{name: "JSON이 아님", frame: `not json`, malformed: true},
		{name: "배열", frame: `[1,2]`, malformed: true},
		{name: "type 없음", frame: `{"task_id":"t1"}`, malformed: true},
		{name: "type이 숫자", frame: `{"type":3}`, malformed: true},
		{name: "알 수 없는 type", frame: `{"type":"heartbeat"}`, malformed: true},
		{name: "data 없는 domain_update", frame: `{"type":"domain_update","domain_name":"A"}`, malformed: true},
		{name: "data가 문자열", frame: `{"type":"domain_update","domain_name":"A","data":"x"}`, malformed: true},
		{name: "이름 없는 domain_update", frame: `{"type":"domain_update","data":{"domainDescription":"d"}}`, malformed: true},
		{name: "processed 누락", frame: `{"type":"progress_update","total":2}`, malformed: true},
		{name: "total이 문자열", frame: `{"type":"progress_update","processed":1,"total":"2"}`, malformed: true},
		{name: "소수 processed", frame: `{"type":"progress_update","processed":1.5,"total":2}`, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeEvent([]byte(tt.frame))
			if tt.malformed {
				assert.ErrorIs(t, err, contract.ErrMalformedEvent)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
