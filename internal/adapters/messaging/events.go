package messaging

type KafkaEvent = string

const (
	ListingReceivedEvent   = "listing_received"
	ListingPersistedEvent  = "listing_persisted"
	ListingDispatchedEvent = "listing_dispatched"
	ListingFailedEvent     = "listing_failed"
	ListingDeleteRequested = "listing_delete_requested"
)
