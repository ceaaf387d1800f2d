package constants

// Event type names published on the bus and the Redis channel.
const (
	EventOrderCreated       = "OrderCreated"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderExpired       = "OrderExpired"
	EventContractCreated    = "ContractCreated"
	EventContractSettled    = "ContractSettled"
	EventContractLiquidated = "ContractLiquidated"
	EventParameterUpdated   = "ParameterUpdated"
)
