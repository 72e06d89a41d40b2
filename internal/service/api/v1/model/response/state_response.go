package response

import (
	"time"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/darkkaiser/domain-sync/internal/service/engine"
)

// ItemResponse 항목 하나의 표시 상태
type ItemResponse struct {
	Key    contract.ItemKey       `json:"key"`
	Name   string                 `json:"name"`
	Status engine.ItemStatus      `json:"status"`
	Record *contract.ResultRecord `json:"record,omitempty"`
}

// StateResponse 엔진 상태 조회 응답
type StateResponse struct {
	Generation uint64         `json:"generation"`
	Query      string         `json:"query"`
	Task       *contract.Task `json:"task"`
	Status     string         `json:"status"`

	ChannelMode   engine.ChannelMode `json:"channel_mode"`
	LastError     engine.ErrorKind   `json:"last_error"`
	PushConnected bool               `json:"push_connected"`
	Polling       bool               `json:"polling"`
	PollFailures  int                `json:"poll_failures"`

	// TotalItems 전체 항목 수, Visible 그중 노출 중인 항목 수
	TotalItems int  `json:"total_items"`
	Visible    int  `json:"visible"`
	HasMore    bool `json:"has_more"`

	Items []ItemResponse `json:"items"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewItemResponse Snapshot에서 항목 하나의 응답을 만듭니다.
func NewItemResponse(snap *engine.Snapshot, key contract.ItemKey) ItemResponse {
	item := ItemResponse{
		Key:    key,
		Name:   snap.NameOf(key),
		Status: engine.Project(snap, key),
	}
	if record, ok := snap.Results[key]; ok {
		c := record.Clone()
		item.Record = &c
	}

	return item
}

// NewStateResponse Snapshot을 응답으로 변환합니다. all이 false이면 노출 중인 항목만 포함합니다.
func NewStateResponse(snap *engine.Snapshot, all bool) StateResponse {
	keys := snap.VisibleItems()
	if all {
		keys = snap.Items
	}

	items := make([]ItemResponse, 0, len(keys))
	for _, key := range keys {
		items = append(items, NewItemResponse(snap, key))
	}

	visible := min(snap.Visible, len(snap.Items))

	return StateResponse{
		Generation: snap.Generation,
		Query:      snap.Query,
		Task:       snap.Task,
		Status:     snap.Status().String(),

		ChannelMode:   snap.Mode,
		LastError:     snap.LastError,
		PushConnected: snap.PushConnected,
		Polling:       snap.Polling,
		PollFailures:  snap.PollFailures,

		TotalItems: len(snap.Items),
		Visible:    visible,
		HasMore:    visible < len(snap.Items),

		Items: items,

		UpdatedAt: snap.UpdatedAt,
	}
}
