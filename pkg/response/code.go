package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserExists      = 10001
	ErrUserNotFound    = 10002
	ErrAuthFailed      = 10003
	ErrTokenInvalid    = 10004
	ErrNoPermission    = 10005
	ErrAccountDisabled = 10006
	ErrNotEligible     = 10007

	// 内容模块错误 200xx
	ErrPostNotFound    = 20001
	ErrCommentNotFound = 20002
	ErrInvalidReaction = 20003
	ErrContentDisabled = 20004

	// 社交关系模块错误 300xx
	ErrAlreadyFollowing  = 30001
	ErrRequestNotFound   = 30002
	ErrRequestNotPending = 30003
	ErrSelfRelation      = 30004

	// 广告模块错误 400xx
	ErrCampaignNotFound  = 40001
	ErrCampaignNotActive = 40002

	// 系统错误 500xx
	ErrServerInternal     = 50001
	ErrInvalidParam       = 50002
	ErrTooManyRequests    = 50003
	ErrResourceNotFound   = 50004
	ErrConflict           = 50005
	ErrGatewayUnavailable = 50006

	// 钱包模块错误 600xx
	ErrInsufficientBalance = 60001
	ErrBelowMinimum        = 60002
	ErrTxnNotFound         = 60003
	ErrTxnNotPending       = 60004
	ErrDuplicateRequest    = 60005
)
