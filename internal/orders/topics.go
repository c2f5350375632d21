package orders

const (
	TopicOrderCreated   = "assets.order.created"
	TopicItemConfirmed  = "assets.item.confirmed"
	TopicItemDeployed   = "assets.item.deployed"
	TopicItemUndeployed = "assets.item.undeployed"
	TopicProductChanged = "assets.product.changed"
)

// AllTopics is the set the projector subscribes to.
var AllTopics = []string{
	TopicOrderCreated,
	TopicItemConfirmed,
	TopicItemDeployed,
	TopicItemUndeployed,
	TopicProductChanged,
}

// TopicFor maps an event type to its topic.
func TopicFor(eventType string) string {
	switch eventType {
	case EventOrderCreated:
		return TopicOrderCreated
	case EventItemsConfirmed:
		return TopicItemConfirmed
	case EventItemDeployed:
		return TopicItemDeployed
	case EventItemUndeployed:
		return TopicItemUndeployed
	default:
		return TopicProductChanged
	}
}

// Partition key = order_id so all events of one basket keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
