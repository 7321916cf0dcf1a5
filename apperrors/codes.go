package apperrors

type Code string

const (
	CodeUnknown                 Code = "UNKNOWN"
	CodeInvalidArgument         Code = "INVALID_ARGUMENT"
	CodeNotFound                Code = "NOT_FOUND"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeChatClosed              Code = "CHAT_CLOSED"
	CodeEmptyMessage            Code = "EMPTY_MESSAGE"
	CodeDuplicateActiveProposal Code = "DUPLICATE_ACTIVE_PROPOSAL"
	CodeSelfMatch               Code = "SELF_MATCH"
	CodeInternal                Code = "INTERNAL"
)
