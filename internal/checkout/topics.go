package checkout

const (
	TopicCheckoutConfirmed = "checkout.confirmed"
	TopicCheckoutRejected  = "checkout.rejected"
)

// Partition key = session id, so all checkout events for one visitor keep
// their order.
func PartitionKey(sessionID string) []byte { return []byte(sessionID) }
