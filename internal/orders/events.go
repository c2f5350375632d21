package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventItemsConfirmed = "ItemsConfirmed"
	EventItemDeployed   = "ItemDeployed"
	EventItemUndeployed = "ItemUndeployed"
	EventProductChanged = "ProductChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "assettrack-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id when there is one
	Payload       json.RawMessage `json:"payload"`
}

// ---- payloads ----

type OrderCreatedPayload struct {
	OrderID   string  `json:"order_id"`
	RowIDs    []int64 `json:"row_ids"`
	OrderedBy string  `json:"ordered_by"`
	Units     int     `json:"units"`
}

type ItemsConfirmedPayload struct {
	OrderID    string   `json:"order_id"`
	OrderRowID int64    `json:"order_row_id"`
	ProductID  int64    `json:"product_id"`
	ItemIDs    []int64  `json:"item_ids"`
	Serials    []string `json:"serials,omitempty"`
}

type ItemDeployedPayload struct {
	OrderID            string `json:"order_id"`
	ConfirmedItemID    int64  `json:"confirmed_item_id"`
	DeployedItemID     int64  `json:"deployed_item_id"`
	ProductID          int64  `json:"product_id"`
	SerialNumber       string `json:"serial_number,omitempty"`
	DeployedBy         string `json:"deployed_by"`
	DeploymentLocation string `json:"deployment_location"`
}

type ItemUndeployedPayload struct {
	OrderID         string `json:"order_id"`
	ConfirmedItemID int64  `json:"confirmed_item_id"`
	DeployedItemID  int64  `json:"deployed_item_id"`
	SerialNumber    string `json:"serial_number,omitempty"`
}

type ProductChangedPayload struct {
	ProductID int64  `json:"product_id"`
	Action    string `json:"action"` // created | updated | deleted
}
