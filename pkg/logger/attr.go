package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// AccountID records the account the log line is about under "account_id".
func AccountID(id int64) slog.Attr {
	return slog.Int64("account_id", id)
}

// OriginID records the account whose action caused an event.
func OriginID(id int64) slog.Attr {
	return slog.Int64("origin_id", id)
}

// NotificationID records a persisted notification identifier.
// Empty ids produce an empty Attr.
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// GroupKey records the grouping key of a notification.
func GroupKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("group_key", key)
}

// DeviceToken records a truncated push token; full tokens never reach logs.
func DeviceToken(token string) slog.Attr {
	if len(token) > 8 {
		token = token[:8] + "…"
	}
	return slog.String("device_token", token)
}

// Platform records a device platform.
func Platform(p string) slog.Attr {
	return slog.String("platform", p)
}

// App records an application bundle identifier.
func App(app string) slog.Attr {
	return slog.String("app", app)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// EventType records the event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// RateLimitKey records the resolved rate limiter key.
func RateLimitKey(key string) slog.Attr {
	return slog.String("ratelimit_key", key)
}

// StatusCode records an HTTP status code returned by an upstream service.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// BatchSize records the number of items in a batch.
func BatchSize(n int) slog.Attr {
	return slog.Int("batch_size", n)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Handler records the handler name under the key "handler".
func Handler(name string) slog.Attr {
	return slog.String("handler", name)
}
