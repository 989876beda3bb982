package network

// Client requests.
const (
	MsgTypeHeartbeat   = 1
	MsgTypeCreateGame  = 101
	MsgTypeAttachGame  = 102
	MsgTypeDetachGame  = 103
	MsgTypeRoll        = 201
	MsgTypeChooseMove  = 202
	MsgTypeAcknowledge = 203
	MsgTypeBonusGate   = 204
	MsgTypeReselect    = 205
)

// Server events.
const (
	MsgTypeGameState = 301
	MsgTypeRolled    = 302
	MsgTypeCaptured  = 303
	MsgTypePhase     = 304
	MsgTypeGameOver  = 305
	MsgTypeError     = 400
)

// Error codes carried by MsgTypeError and the HTTP API.
const (
	CodeInvalidMove = "invalid_move"
	CodeWrongPhase  = "wrong_phase"
	CodeNotFound    = "not_found"
	CodeBadRequest  = "bad_request"
	CodeInternal    = "internal"
)
