package orch

import "github.com/dkeye/callrelay/internal/domain"

func toRoom(s string) domain.RoomID { return domain.RoomID(s) }
