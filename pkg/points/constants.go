package points

const (
	operationGift       = "gift"
	operationExchange   = "exchange"
	operationDistribute = "distribute"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// StatisticsBatchLimit caps user ids per statistics-provider call.
	StatisticsBatchLimit = 100
)
