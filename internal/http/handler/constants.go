package handler

const (
	paramProjectID = "project_id"
	paramIntentID  = "intent_id"

	queryTotal      = "total"
	queryPlan       = "plan"
	queryUnreadOnly = "unread"
	queryLimit      = "limit"
	queryOffset     = "offset"

	maxEventTextLength = 200
	maxAuditPageSize   = 500
)

const (
	msgContentTypeJSONRequired = "content type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidProjectID        = "invalid project_id"
	msgIntentIDRequired        = "intent_id required"
	msgInvalidTotal            = "total must be a non-negative integer in minor units"
	msgInvalidPaymentType      = "payment_type must be initial, final or maintenance"
	msgSubjectRequired         = "subject required"
	msgCountPositive           = "count must be positive"
	msgTextTooLong             = "text exceeds 200 characters"
	msgInvalidPagination       = "invalid pagination parameters"
	msgNotificationSent        = "notification sent"
	msgResourceNotFound        = "resource not found"
)
