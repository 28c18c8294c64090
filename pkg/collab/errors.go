package collab

import "github.com/mkrueger/icy-term-go/internal/coreerr"

var (
	errWrongPassword = coreerr.New(coreerr.AuthFailed, "collab: wrong room password")
	errRoomFull      = coreerr.New(coreerr.Protocol, "collab: room is full")
	errExpectedJoin  = coreerr.New(coreerr.Protocol, "collab: expected join as first message")
)
