package cache

import "fmt"

func ReportStatusKey(requestID string) string {
	return fmt.Sprintf("report:status:%s", requestID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
