package constants

// Redis channel names.
const (
	// RedisChannelFuturesEvents carries every engine event as JSON for
	// external consumers (keepers, indexers).
	RedisChannelFuturesEvents = "futures.events"
)
