package logg

const (
	Layer     = "layer"
	Operation = "operation"
	Stage     = "stage"
	Intent    = "intent"
	Selector  = "selector"
	URL       = "url"
	Product   = "product"
	RequestID = "request_id"
	Attempt   = "attempt"
)
