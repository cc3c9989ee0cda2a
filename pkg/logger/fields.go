package logger

import (
	"time"

	"go.uber.org/zap"
)

func Err(err error) zap.Field { return zap.Error(err) }

func EntryID(id uint64) zap.Field { return zap.Uint64("entry_id", id) }

func RequestID(id string) zap.Field { return zap.String("request_id", id) }

func ClientIP(ip string) zap.Field { return zap.String("client_ip", ip) }

func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
