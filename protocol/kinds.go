package protocol

// RequestKind tags an outbound request record.
type RequestKind int

const (
	RequestConnect        RequestKind = 1
	RequestPing           RequestKind = 3
	RequestChannelCreate  RequestKind = 4
	RequestChannelList    RequestKind = 5
	RequestChannelInfo    RequestKind = 6
	RequestChannelJoin    RequestKind = 7
	RequestChannelLeave   RequestKind = 8
	RequestChannelMessage RequestKind = 9
	RequestWhois          RequestKind = 10
	RequestWhoami         RequestKind = 11
	RequestUserMessage    RequestKind = 12
	RequestSetUsername    RequestKind = 13
	RequestUserList       RequestKind = 14
	RequestDisconnect     RequestKind = 23
)

// ResponseKind tags an inbound response record. Kinds above ConnectAck
// double as unsolicited server notifications.
type ResponseKind int

const (
	ResponseError          ResponseKind = 20
	ResponseOK             ResponseKind = 21
	ResponseConnect        ResponseKind = 22
	ResponsePing           ResponseKind = 24
	ResponseChannelCreate  ResponseKind = 25
	ResponseChannelList    ResponseKind = 26
	ResponseChannelInfo    ResponseKind = 27
	ResponseChannelJoin    ResponseKind = 28
	ResponseChannelLeft    ResponseKind = 29
	ResponseChannelMessage ResponseKind = 30
	ResponseWhois          ResponseKind = 31
	ResponseWhoami         ResponseKind = 32
	ResponseUserMessage    ResponseKind = 33
	ResponseSetUsername    ResponseKind = 34
	ResponseUserList       ResponseKind = 35
	ResponseServerMessage  ResponseKind = 36
	ResponseServerShutdown ResponseKind = 37
)
